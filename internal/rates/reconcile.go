package rates

import (
	"math"

	"ratedesk/internal/model"
)

// Rate reconciler: merges the cost-based required rate with condition
// multipliers and the factoring fee into final quote boundaries.

// Condition multiplier tables. Keyed maps so adding a category is a data
// change, not a logic change.

var weatherMultipliers = map[model.WeatherCondition]float64{
	model.WeatherClear:   1.00,
	model.WeatherRain:    1.05,
	model.WeatherWind:    1.08,
	model.WeatherSnow:    1.15,
	model.WeatherStorm:   1.25,
	model.WeatherIce:     1.35,
	model.WeatherExtreme: 1.50,
}

var loadTypeMultipliers = map[model.LoadType]float64{
	model.LoadFull:    1.00,
	model.LoadPartial: 0.85,
	model.LoadLTL:     0.75,
}

var freightClassMultipliers = map[model.FreightClass]float64{
	model.FreightDryVan:      1.00,
	model.FreightFlatbed:     1.08,
	model.FreightReefer:      1.12,
	model.FreightSpecialized: 1.25,
	model.FreightHazmat:      1.50,
}

var seasonMultipliers = map[model.Season]float64{
	model.SeasonSummer: 1.00,
	model.SeasonSpring: 1.05,
	model.SeasonFall:   1.10,
	model.SeasonWinter: 1.15,
}

// Weight surcharge: linear above the 10,000 lb threshold. Both values are
// business policy, kept as named constants rather than derived figures.
const (
	weightThresholdLbs  = 10000.0
	weightSurchargeRate = 0.00002 // per lb over threshold
)

func lookupMult[K comparable](m map[K]float64, k K) float64 {
	if v, ok := m[k]; ok {
		return v
	}
	return 1.0
}

// WeightMultiplier returns 1.0 at or below the threshold and a linear
// surcharge above it.
func WeightMultiplier(weightLbs float64) float64 {
	over := weightLbs - weightThresholdLbs
	if over <= 0 {
		return 1.0
	}
	return 1.0 + over*weightSurchargeRate
}

// ServiceMultiplier takes the maximum applicable of expedite/rush/same-day
// and applies the team multiplier multiplicatively on top.
func ServiceMultiplier(load model.LoadAttributes, s model.CostSettings) float64 {
	lvl := 1.0
	if load.Expedite && s.ExpediteMultiplier > lvl {
		lvl = s.ExpediteMultiplier
	}
	if load.Rush && s.RushMultiplier > lvl {
		lvl = s.RushMultiplier
	}
	if load.SameDay && s.SameDayMultiplier > lvl {
		lvl = s.SameDayMultiplier
	}
	if load.Team {
		lvl *= s.TeamMultiplier
	}
	return lvl
}

// ReconcileInput carries pre-validated numeric input; the boundary layer
// guarantees positive miles.
type ReconcileInput struct {
	Route    model.Route
	Category model.VehicleCategory
	Settings model.CostSettings
	Load     model.LoadAttributes
	Costs    model.CostSummary
}

// Reconcile produces the recommended/min/max price and full breakdown.
func Reconcile(in ReconcileInput) model.RateCalculationResult {
	s := in.Settings
	miles := in.Route.TotalMiles

	weather := lookupMult(weatherMultipliers, in.Load.Weather)
	loadType := lookupMult(loadTypeMultipliers, in.Load.LoadType)
	freight := lookupMult(freightClassMultipliers, in.Load.FreightClass)
	weight := WeightMultiplier(in.Load.WeightLbs)
	season := lookupMult(seasonMultipliers, in.Load.Season)
	service := ServiceMultiplier(in.Load, s)

	mults := []model.MarketFactor{
		{Name: "weather", Multiplier: weather, Description: string(in.Load.Weather)},
		{Name: "load_type", Multiplier: loadType, Description: string(in.Load.LoadType)},
		{Name: "freight_class", Multiplier: freight, Description: string(in.Load.FreightClass)},
		{Name: "weight", Multiplier: round3(weight), Description: "surcharge above 10,000 lb"},
		{Name: "season", Multiplier: season, Description: string(in.Load.Season)},
		{Name: "service_level", Multiplier: round3(service), Description: "max(expedite,rush,same-day) x team"},
	}
	total := weather * loadType * freight * weight * season * service

	// Margin-loaded cost rate, floored at the category base so an
	// understated cost basis still yields a sane minimum.
	targetRPM := (in.Costs.CostPerMile / (1 - s.TargetProfitMargin)) * total
	floorRPM := BaseRatePerMile(in.Category) * total
	rpm := targetRPM
	if floorRPM > rpm {
		rpm = floorRPM
	}

	preFactoring := math.Round(rpm * miles)
	factoringFee := math.Round(preFactoring * s.FactoringRate)
	// Factoring is passed through to the customer, not absorbed.
	recommended := preFactoring + factoringFee

	profit := recommended - (in.Costs.TotalCost + factoringFee)

	return model.RateCalculationResult{
		RecommendedRate:   recommended,
		MinRate:           round2(recommended * 0.85),
		MaxRate:           round2(recommended * 1.20),
		RatePerMile:       round3(recommended / miles),
		CostPerMile:       in.Costs.CostPerMile,
		PreFactoringTotal: preFactoring,
		FactoringFee:      factoringFee,
		Costs:             in.Costs.Lines,
		CostTotal:         in.Costs.TotalCost,
		ServiceFees:       in.Costs.ServiceFees,
		Profit:            round2(profit),
		ProfitPerMile:     round3(profit / miles),
		ProfitMargin:      round3(profit / recommended),
		Multipliers:       mults,
		TotalMultiplier:   round3(total),
	}
}
