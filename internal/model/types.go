package model

import "time"

// Core domain types for the rate & market-intelligence engine.

// VehicleCategory is the closed set of equipment classes the engine prices for.
type VehicleCategory string

const (
	CategoryTractor  VehicleCategory = "tractor"
	CategoryBoxTruck VehicleCategory = "box_truck"
	CategoryCargoVan VehicleCategory = "cargo_van"
	CategorySprinter VehicleCategory = "sprinter"
	CategoryReefer   VehicleCategory = "reefer"
)

// FreightClass keys the equipment/commodity multiplier tables.
type FreightClass string

const (
	FreightDryVan      FreightClass = "dry_van"
	FreightReefer      FreightClass = "reefer"
	FreightFlatbed     FreightClass = "flatbed"
	FreightSpecialized FreightClass = "specialized"
	FreightHazmat      FreightClass = "hazmat"
)

type LoadType string

const (
	LoadFull    LoadType = "full"
	LoadPartial LoadType = "partial"
	LoadLTL     LoadType = "ltl"
)

type WeatherCondition string

const (
	WeatherClear   WeatherCondition = "clear"
	WeatherRain    WeatherCondition = "rain"
	WeatherWind    WeatherCondition = "wind"
	WeatherSnow    WeatherCondition = "snow"
	WeatherStorm   WeatherCondition = "storm"
	WeatherIce     WeatherCondition = "ice"
	WeatherExtreme WeatherCondition = "extreme"
)

type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
	SeasonWinter Season = "winter"
)

// Route is immutable once a quote calculation begins.
// Invariant: DeadheadMiles <= TotalMiles (enforced at the API boundary).
type Route struct {
	Origin           string   `json:"origin"`
	Destination      string   `json:"destination"`
	OriginState      string   `json:"originState"`
	DestinationState string   `json:"destinationState"`
	TotalMiles       float64  `json:"totalMiles"`
	DeadheadMiles    float64  `json:"deadheadMiles,omitempty"`
	StatesCrossed    []string `json:"statesCrossed,omitempty"`
}

// VehicleProfile supplies per-vehicle figures; zero fields fall back to
// category defaults when the vehicle store has no record.
type VehicleProfile struct {
	Category  VehicleCategory `json:"category"`
	MPG       float64         `json:"mpg,omitempty"`
	AxleCount int             `json:"axleCount,omitempty"`
}

// VehicleRecord is a saved vehicle profile owned by a carrier.
type VehicleRecord struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Profile VehicleProfile `json:"profile"`
}

// CostSettings is the per-carrier cost configuration. Every field has a
// published industry default; sparse values are resolved once via
// rates.ResolveSettings rather than at each use site.
type CostSettings struct {
	// Annual fixed costs
	AnnualInsurance float64 `json:"annualInsurance"`
	MonthlyPayment  float64 `json:"monthlyPayment"`
	AnnualLicensing float64 `json:"annualLicensing"`
	MonthlyOverhead float64 `json:"monthlyOverhead"`
	AnnualMiles     float64 `json:"annualMiles"`

	// Variable per-mile costs
	MaintenanceCPM float64 `json:"maintenanceCpm"`
	TireCPM        float64 `json:"tireCpm"`

	// Financial rates
	FactoringRate      float64 `json:"factoringRate"`
	TargetProfitMargin float64 `json:"targetProfitMargin"`

	// Service multipliers, each >= 1.0
	ExpediteMultiplier float64 `json:"expediteMultiplier"`
	TeamMultiplier     float64 `json:"teamMultiplier"`
	RushMultiplier     float64 `json:"rushMultiplier"`
	SameDayMultiplier  float64 `json:"sameDayMultiplier"`

	// Flat service fees
	DetentionPerHour float64 `json:"detentionPerHour"`
	DriverAssistFee  float64 `json:"driverAssistFee"`
	WhiteGloveFee    float64 `json:"whiteGloveFee"`
	TrackingFee      float64 `json:"trackingFee"`
	LiftgateFee      float64 `json:"liftgateFee"`
	PalletJackFee    float64 `json:"palletJackFee"`
	DCFee            float64 `json:"dcFee"`

	// Reefer and consumables
	ReeferPerHour     float64 `json:"reeferPerHour"`
	DEFPricePerGallon float64 `json:"defPricePerGallon"`
	NightlyLodging    float64 `json:"nightlyLodging"`

	DefaultDeadheadMiles float64 `json:"defaultDeadheadMiles"`
}

// SettingsPatch is a sparse override; nil fields keep the stored value.
type SettingsPatch struct {
	AnnualInsurance      *float64 `json:"annualInsurance,omitempty"`
	MonthlyPayment       *float64 `json:"monthlyPayment,omitempty"`
	AnnualLicensing      *float64 `json:"annualLicensing,omitempty"`
	MonthlyOverhead      *float64 `json:"monthlyOverhead,omitempty"`
	AnnualMiles          *float64 `json:"annualMiles,omitempty"`
	MaintenanceCPM       *float64 `json:"maintenanceCpm,omitempty"`
	TireCPM              *float64 `json:"tireCpm,omitempty"`
	FactoringRate        *float64 `json:"factoringRate,omitempty"`
	TargetProfitMargin   *float64 `json:"targetProfitMargin,omitempty"`
	ExpediteMultiplier   *float64 `json:"expediteMultiplier,omitempty"`
	TeamMultiplier       *float64 `json:"teamMultiplier,omitempty"`
	RushMultiplier       *float64 `json:"rushMultiplier,omitempty"`
	SameDayMultiplier    *float64 `json:"sameDayMultiplier,omitempty"`
	DetentionPerHour     *float64 `json:"detentionPerHour,omitempty"`
	DriverAssistFee      *float64 `json:"driverAssistFee,omitempty"`
	WhiteGloveFee        *float64 `json:"whiteGloveFee,omitempty"`
	TrackingFee          *float64 `json:"trackingFee,omitempty"`
	LiftgateFee          *float64 `json:"liftgateFee,omitempty"`
	PalletJackFee        *float64 `json:"palletJackFee,omitempty"`
	DCFee                *float64 `json:"dcFee,omitempty"`
	ReeferPerHour        *float64 `json:"reeferPerHour,omitempty"`
	DEFPricePerGallon    *float64 `json:"defPricePerGallon,omitempty"`
	NightlyLodging       *float64 `json:"nightlyLodging,omitempty"`
	DefaultDeadheadMiles *float64 `json:"defaultDeadheadMiles,omitempty"`
}

// LoadAttributes carries the caller-supplied load and service flags.
type LoadAttributes struct {
	WeightLbs    float64          `json:"weightLbs"`
	FreightClass FreightClass     `json:"freightClass"`
	LoadType     LoadType         `json:"loadType"`
	Weather      WeatherCondition `json:"weather,omitempty"`
	Season       Season           `json:"season,omitempty"`
	PickupDate   time.Time        `json:"pickupDate,omitempty"`

	Expedite bool `json:"expedite,omitempty"`
	Team     bool `json:"team,omitempty"`
	Rush     bool `json:"rush,omitempty"`
	SameDay  bool `json:"sameDay,omitempty"`

	Liftgate     bool `json:"liftgate,omitempty"`
	PalletJack   bool `json:"palletJack,omitempty"`
	DriverAssist bool `json:"driverAssist,omitempty"`
	WhiteGlove   bool `json:"whiteGlove,omitempty"`
	Tracking     bool `json:"tracking,omitempty"`

	DCPickup   bool `json:"dcPickup,omitempty"`
	DCDelivery bool `json:"dcDelivery,omitempty"`

	ReeferHours float64 `json:"reeferHours,omitempty"`
}

// RateBenchmark is the published low/mid/high $/mile for one region pair.
type RateBenchmark struct {
	Low  float64 `json:"low"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
}

// MarketFactor is one audit-trail entry in a quote's multiplier list.
type MarketFactor struct {
	Name        string  `json:"name"`
	Multiplier  float64 `json:"multiplier"`
	Description string  `json:"description,omitempty"`
}

type FlowDirection string

const (
	FlowHeadhaul FlowDirection = "headhaul"
	FlowBackhaul FlowDirection = "backhaul"
	FlowBalanced FlowDirection = "balanced"
)

type MarketTemperature string

const (
	TempHot      MarketTemperature = "hot"
	TempWarm     MarketTemperature = "warm"
	TempBalanced MarketTemperature = "balanced"
	TempCool     MarketTemperature = "cool"
	TempCold     MarketTemperature = "cold"
)

// FlowAnalysis is derived per region pair and recomputed per request.
type FlowAnalysis struct {
	Direction        FlowDirection     `json:"direction"`
	ImbalanceScore   float64           `json:"imbalanceScore"`
	TruckToLoadRatio float64           `json:"truckToLoadRatio"`
	Temperature      MarketTemperature `json:"marketTemperature"`
}

// ReturnLoadPotential estimates outbound opportunity from the destination region.
type ReturnLoadPotential struct {
	Score          float64 `json:"score"`
	Rating         string  `json:"rating"`
	AvgLoadsPerDay float64 `json:"avgLoadsPerDay"`
}

// MarketRateResult is the benchmark engine's output.
type MarketRateResult struct {
	OriginRegion    string              `json:"originRegion,omitempty"`
	DestRegion      string              `json:"destRegion,omitempty"`
	PerMile         RateBenchmark       `json:"perMile"`
	TotalLow        float64             `json:"totalLow"`
	TotalMid        float64             `json:"totalMid"`
	TotalHigh       float64             `json:"totalHigh"`
	TotalMultiplier float64             `json:"totalMultiplier"`
	Factors         []MarketFactor      `json:"factors"`
	Flow            FlowAnalysis        `json:"flow"`
	Confidence      float64             `json:"confidence"`
	ConfidenceLabel string              `json:"confidenceLabel"`
	ReturnPotential ReturnLoadPotential `json:"returnPotential"`
	AvgReturnRPM    float64             `json:"avgReturnRpm"`
}

// CostLine is one named entry in a cost or fee breakdown.
type CostLine struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// CostSummary is the cost accountant's output.
type CostSummary struct {
	Lines       []CostLine `json:"lines"`
	ServiceFees []CostLine `json:"serviceFees,omitempty"`
	TotalCost   float64    `json:"totalCost"`
	CostPerMile float64    `json:"costPerMile"`
}

// RateCalculationResult is the engine's primary output artifact.
type RateCalculationResult struct {
	RecommendedRate   float64 `json:"recommendedRate"`
	MinRate           float64 `json:"minRate"`
	MaxRate           float64 `json:"maxRate"`
	RatePerMile       float64 `json:"ratePerMile"`
	CostPerMile       float64 `json:"costPerMile"`
	PreFactoringTotal float64 `json:"preFactoringTotal"`
	FactoringFee      float64 `json:"factoringFee"`

	Costs       []CostLine `json:"costs"`
	CostTotal   float64    `json:"costTotal"`
	ServiceFees []CostLine `json:"serviceFees,omitempty"`

	Profit        float64 `json:"profit"`
	ProfitPerMile float64 `json:"profitPerMile"`
	ProfitMargin  float64 `json:"profitMargin"`

	Multipliers     []MarketFactor `json:"multipliers"`
	TotalMultiplier float64        `json:"totalMultiplier"`
}

// FactorResult is one scored factor in an AcceptanceScore.
type FactorResult struct {
	Name    string  `json:"name"`
	Weight  float64 `json:"weightPct"`
	Score   float64 `json:"score"`
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Detail  string  `json:"detail,omitempty"`
}

// AcceptanceScore is computed fresh per quote and never mutated.
type AcceptanceScore struct {
	Overall        float64        `json:"overall"`
	Rating         string         `json:"rating"`
	Recommendation string         `json:"recommendation"`
	Factors        []FactorResult `json:"factors"`
}

// WeatherAlert is a route-level alert supplied by the weather collaborator.
type WeatherAlert struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // advisory, watch, warning, severe
	State    string `json:"state,omitempty"`
}

// WeatherContext is consumed only by the acceptance scorer.
type WeatherContext struct {
	RouteAlerts []WeatherAlert `json:"routeAlerts,omitempty"`
	DelayRisk   string         `json:"delayRisk,omitempty"`
	HasAlerts   bool           `json:"hasAlerts"`
}

// TollContext is purely additive input from the toll collaborator.
type TollContext struct {
	TotalTolls   float64            `json:"totalTolls"`
	TollsByState map[string]float64 `json:"tollsByState,omitempty"`
}

type MarketPosition string

const (
	BelowMarket MarketPosition = "below_market"
	AtMarket    MarketPosition = "at_market"
	AboveMarket MarketPosition = "above_market"
)

// MarketComparison positions a quoted total against the lane benchmark band.
type MarketComparison struct {
	Position     MarketPosition `json:"position"`
	Percentile   float64        `json:"percentile"`
	DeltaPerMile float64        `json:"deltaPerMile"`
}

// QuoteRequest is the API payload for a full quote calculation.
type QuoteRequest struct {
	Route            Route           `json:"route"`
	Vehicle          *VehicleProfile `json:"vehicle,omitempty"`
	Load             LoadAttributes  `json:"load"`
	FuelPricePerGal  float64         `json:"fuelPricePerGallon,omitempty"`
	Tolls            *TollContext    `json:"tolls,omitempty"`
	Weather          *WeatherContext `json:"weather,omitempty"`
	SettingsOverride *SettingsPatch  `json:"settingsOverride,omitempty"`
}

// QuoteResponse bundles every engine artifact for one request.
type QuoteResponse struct {
	ID         string                `json:"id,omitempty"`
	Rate       RateCalculationResult `json:"rate"`
	Market     MarketRateResult      `json:"market"`
	Comparison MarketComparison      `json:"comparison"`
	Score      AcceptanceScore       `json:"score"`
}

// SavedQuote is the persisted form of a completed quote.
type SavedQuote struct {
	ID        string                `json:"id"`
	CarrierID string                `json:"carrierId"`
	CreatedAt time.Time             `json:"createdAt"`
	Route     Route                 `json:"route"`
	Rate      RateCalculationResult `json:"rate"`
	Market    *MarketRateResult     `json:"market,omitempty"`
	Score     *AcceptanceScore      `json:"score,omitempty"`
}

// SubscriptionRequest registers a webhook endpoint for quote events.
type SubscriptionRequest struct {
	CarrierID string   `json:"carrierId"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	Secret    string   `json:"secret"`
}

type Subscription struct {
	ID        string   `json:"id"`
	CarrierID string   `json:"carrierId"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	Secret    string   `json:"secret,omitempty"`
}
