package rates

import (
	"math"

	"ratedesk/internal/model"
)

// Cost accountant: operating-cost computation plus the single place where
// sparse carrier settings are resolved against published defaults.

// DefaultFuelPrice is the fallback $/gallon when the fuel-price
// collaborator signals unavailable.
const DefaultFuelPrice = 3.85

// defGallonsPerMile: DEF consumption approximated at 1 gallon per 400
// miles regardless of category (kept flat on purpose; see DESIGN.md).
const defMilesPerGallon = 400

// avgSpeedMPH and maxDriveHoursPerDay model the regulatory daily driving
// cap used for lodging estimates.
const (
	avgSpeedMPH         = 50.0
	maxDriveHoursPerDay = 11.0
)

// defaultSettings holds the published industry defaults per category.
var defaultSettings = map[model.VehicleCategory]model.CostSettings{
	model.CategoryTractor: {
		AnnualInsurance: 12000, MonthlyPayment: 2200, AnnualLicensing: 2500,
		MonthlyOverhead: 1500, AnnualMiles: 110000,
		MaintenanceCPM: 0.17, TireCPM: 0.04,
		FactoringRate: 0.03, TargetProfitMargin: 0.25,
		ExpediteMultiplier: 1.3, TeamMultiplier: 2.0, RushMultiplier: 1.5, SameDayMultiplier: 1.5,
		DetentionPerHour: 65, DriverAssistFee: 75, WhiteGloveFee: 150,
		TrackingFee: 25, LiftgateFee: 75, PalletJackFee: 20, DCFee: 50,
		ReeferPerHour: 3.5, DEFPricePerGallon: 3.25, NightlyLodging: 125,
		DefaultDeadheadMiles: 50,
	},
	model.CategoryReefer: {
		AnnualInsurance: 13500, MonthlyPayment: 2600, AnnualLicensing: 2500,
		MonthlyOverhead: 1600, AnnualMiles: 105000,
		MaintenanceCPM: 0.19, TireCPM: 0.04,
		FactoringRate: 0.03, TargetProfitMargin: 0.25,
		ExpediteMultiplier: 1.3, TeamMultiplier: 2.0, RushMultiplier: 1.5, SameDayMultiplier: 1.5,
		DetentionPerHour: 70, DriverAssistFee: 75, WhiteGloveFee: 150,
		TrackingFee: 25, LiftgateFee: 75, PalletJackFee: 20, DCFee: 50,
		ReeferPerHour: 3.5, DEFPricePerGallon: 3.25, NightlyLodging: 125,
		DefaultDeadheadMiles: 50,
	},
	model.CategoryBoxTruck: {
		AnnualInsurance: 6500, MonthlyPayment: 1100, AnnualLicensing: 900,
		MonthlyOverhead: 800, AnnualMiles: 70000,
		MaintenanceCPM: 0.11, TireCPM: 0.025,
		FactoringRate: 0.03, TargetProfitMargin: 0.22,
		ExpediteMultiplier: 1.3, TeamMultiplier: 2.0, RushMultiplier: 1.5, SameDayMultiplier: 1.5,
		DetentionPerHour: 50, DriverAssistFee: 60, WhiteGloveFee: 120,
		TrackingFee: 20, LiftgateFee: 60, PalletJackFee: 15, DCFee: 40,
		ReeferPerHour: 3.0, DEFPricePerGallon: 3.25, NightlyLodging: 110,
		DefaultDeadheadMiles: 35,
	},
	model.CategorySprinter: {
		AnnualInsurance: 4200, MonthlyPayment: 750, AnnualLicensing: 450,
		MonthlyOverhead: 500, AnnualMiles: 60000,
		MaintenanceCPM: 0.08, TireCPM: 0.02,
		FactoringRate: 0.03, TargetProfitMargin: 0.20,
		ExpediteMultiplier: 1.3, TeamMultiplier: 2.0, RushMultiplier: 1.5, SameDayMultiplier: 1.5,
		DetentionPerHour: 40, DriverAssistFee: 50, WhiteGloveFee: 100,
		TrackingFee: 15, LiftgateFee: 0, PalletJackFee: 15, DCFee: 30,
		ReeferPerHour: 0, DEFPricePerGallon: 3.25, NightlyLodging: 100,
		DefaultDeadheadMiles: 25,
	},
	model.CategoryCargoVan: {
		AnnualInsurance: 3600, MonthlyPayment: 600, AnnualLicensing: 350,
		MonthlyOverhead: 450, AnnualMiles: 55000,
		MaintenanceCPM: 0.07, TireCPM: 0.015,
		FactoringRate: 0.03, TargetProfitMargin: 0.20,
		ExpediteMultiplier: 1.3, TeamMultiplier: 2.0, RushMultiplier: 1.5, SameDayMultiplier: 1.5,
		DetentionPerHour: 35, DriverAssistFee: 45, WhiteGloveFee: 90,
		TrackingFee: 15, LiftgateFee: 0, PalletJackFee: 10, DCFee: 25,
		ReeferPerHour: 0, DEFPricePerGallon: 3.25, NightlyLodging: 95,
		DefaultDeadheadMiles: 20,
	},
}

// defaultMPG per category, used when no vehicle record exists.
var defaultMPG = map[model.VehicleCategory]float64{
	model.CategoryTractor:  6.5,
	model.CategoryReefer:   6.0,
	model.CategoryBoxTruck: 10.5,
	model.CategorySprinter: 16.0,
	model.CategoryCargoVan: 18.0,
}

// baseRatesPerMile floor the reconciled rate per category so an
// understated cost basis cannot produce an implausibly low quote.
var baseRatesPerMile = map[model.VehicleCategory]float64{
	model.CategoryTractor:  2.00,
	model.CategoryReefer:   2.30,
	model.CategoryBoxTruck: 1.60,
	model.CategorySprinter: 1.30,
	model.CategoryCargoVan: 1.10,
}

// DefaultSettings returns the published defaults for a category.
// Unknown categories price as heavy tractors.
func DefaultSettings(cat model.VehicleCategory) model.CostSettings {
	if s, ok := defaultSettings[cat]; ok {
		return s
	}
	return defaultSettings[model.CategoryTractor]
}

// DefaultVehicle returns the category-default vehicle profile.
func DefaultVehicle(cat model.VehicleCategory) model.VehicleProfile {
	mpg, ok := defaultMPG[cat]
	if !ok {
		cat, mpg = model.CategoryTractor, defaultMPG[model.CategoryTractor]
	}
	return model.VehicleProfile{Category: cat, MPG: mpg}
}

// BaseRatePerMile returns the per-category rate floor.
func BaseRatePerMile(cat model.VehicleCategory) float64 {
	if r, ok := baseRatesPerMile[cat]; ok {
		return r
	}
	return baseRatesPerMile[model.CategoryTractor]
}

// ResolveSettings merges a possibly sparse stored settings record and an
// optional request-level override onto the category defaults, producing a
// fully populated value. This is the only place the fallback happens.
func ResolveSettings(cat model.VehicleCategory, stored *model.CostSettings, override *model.SettingsPatch) model.CostSettings {
	eff := DefaultSettings(cat)
	if stored != nil {
		eff.AnnualInsurance = nz(stored.AnnualInsurance, eff.AnnualInsurance)
		eff.MonthlyPayment = nz(stored.MonthlyPayment, eff.MonthlyPayment)
		eff.AnnualLicensing = nz(stored.AnnualLicensing, eff.AnnualLicensing)
		eff.MonthlyOverhead = nz(stored.MonthlyOverhead, eff.MonthlyOverhead)
		eff.AnnualMiles = nz(stored.AnnualMiles, eff.AnnualMiles)
		eff.MaintenanceCPM = nz(stored.MaintenanceCPM, eff.MaintenanceCPM)
		eff.TireCPM = nz(stored.TireCPM, eff.TireCPM)
		eff.FactoringRate = nz(stored.FactoringRate, eff.FactoringRate)
		eff.TargetProfitMargin = nz(stored.TargetProfitMargin, eff.TargetProfitMargin)
		eff.ExpediteMultiplier = nz(stored.ExpediteMultiplier, eff.ExpediteMultiplier)
		eff.TeamMultiplier = nz(stored.TeamMultiplier, eff.TeamMultiplier)
		eff.RushMultiplier = nz(stored.RushMultiplier, eff.RushMultiplier)
		eff.SameDayMultiplier = nz(stored.SameDayMultiplier, eff.SameDayMultiplier)
		eff.DetentionPerHour = nz(stored.DetentionPerHour, eff.DetentionPerHour)
		eff.DriverAssistFee = nz(stored.DriverAssistFee, eff.DriverAssistFee)
		eff.WhiteGloveFee = nz(stored.WhiteGloveFee, eff.WhiteGloveFee)
		eff.TrackingFee = nz(stored.TrackingFee, eff.TrackingFee)
		eff.LiftgateFee = nz(stored.LiftgateFee, eff.LiftgateFee)
		eff.PalletJackFee = nz(stored.PalletJackFee, eff.PalletJackFee)
		eff.DCFee = nz(stored.DCFee, eff.DCFee)
		eff.ReeferPerHour = nz(stored.ReeferPerHour, eff.ReeferPerHour)
		eff.DEFPricePerGallon = nz(stored.DEFPricePerGallon, eff.DEFPricePerGallon)
		eff.NightlyLodging = nz(stored.NightlyLodging, eff.NightlyLodging)
		eff.DefaultDeadheadMiles = nz(stored.DefaultDeadheadMiles, eff.DefaultDeadheadMiles)
	}
	if override != nil {
		ApplyPatch(&eff, override)
	}
	return eff
}

// ApplyPatch overlays non-nil patch fields onto s.
func ApplyPatch(s *model.CostSettings, p *model.SettingsPatch) {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&s.AnnualInsurance, p.AnnualInsurance)
	set(&s.MonthlyPayment, p.MonthlyPayment)
	set(&s.AnnualLicensing, p.AnnualLicensing)
	set(&s.MonthlyOverhead, p.MonthlyOverhead)
	set(&s.AnnualMiles, p.AnnualMiles)
	set(&s.MaintenanceCPM, p.MaintenanceCPM)
	set(&s.TireCPM, p.TireCPM)
	set(&s.FactoringRate, p.FactoringRate)
	set(&s.TargetProfitMargin, p.TargetProfitMargin)
	set(&s.ExpediteMultiplier, p.ExpediteMultiplier)
	set(&s.TeamMultiplier, p.TeamMultiplier)
	set(&s.RushMultiplier, p.RushMultiplier)
	set(&s.SameDayMultiplier, p.SameDayMultiplier)
	set(&s.DetentionPerHour, p.DetentionPerHour)
	set(&s.DriverAssistFee, p.DriverAssistFee)
	set(&s.WhiteGloveFee, p.WhiteGloveFee)
	set(&s.TrackingFee, p.TrackingFee)
	set(&s.LiftgateFee, p.LiftgateFee)
	set(&s.PalletJackFee, p.PalletJackFee)
	set(&s.DCFee, p.DCFee)
	set(&s.ReeferPerHour, p.ReeferPerHour)
	set(&s.DEFPricePerGallon, p.DEFPricePerGallon)
	set(&s.NightlyLodging, p.NightlyLodging)
	set(&s.DefaultDeadheadMiles, p.DefaultDeadheadMiles)
}

func nz(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

// CostInput bundles the validated inputs to ComputeCosts. Miles must be
// positive; the boundary layer rejects zero/negative input before the
// engine is invoked.
type CostInput struct {
	Route     model.Route
	Vehicle   model.VehicleProfile
	Settings  model.CostSettings
	Load      model.LoadAttributes
	FuelPrice float64 // 0 means unavailable; DefaultFuelPrice applies
	Tolls     *model.TollContext
}

// ComputeCosts produces the full operating-cost breakdown for a load.
func ComputeCosts(in CostInput) model.CostSummary {
	miles := in.Route.TotalMiles
	s := in.Settings

	mpg := in.Vehicle.MPG
	if mpg <= 0 {
		mpg = DefaultVehicle(in.Vehicle.Category).MPG
	}
	fuelPrice := in.FuelPrice
	if fuelPrice <= 0 {
		fuelPrice = DefaultFuelPrice
	}

	fuel := (fuelPrice / mpg) * miles
	def := (miles / defMilesPerGallon) * s.DEFPricePerGallon
	maintenance := s.MaintenanceCPM * miles
	tires := s.TireCPM * miles

	fixedPerMile := (s.AnnualInsurance + s.MonthlyPayment*12 + s.AnnualLicensing + s.MonthlyOverhead*12) / s.AnnualMiles
	fixed := fixedPerMile * miles

	dcStops := 0
	if in.Load.DCPickup {
		dcStops++
	}
	if in.Load.DCDelivery {
		dcStops++
	}
	dcFees := s.DCFee * float64(dcStops)

	driveHours := miles / avgSpeedMPH
	nights := math.Floor(driveHours / maxDriveHoursPerDay)
	lodging := nights * s.NightlyLodging

	lines := []model.CostLine{
		{Name: "fuel", Amount: round2(fuel)},
		{Name: "def", Amount: round2(def)},
		{Name: "maintenance", Amount: round2(maintenance)},
		{Name: "tires", Amount: round2(tires)},
		{Name: "fixed_costs", Amount: round2(fixed)},
	}
	if dcFees > 0 {
		lines = append(lines, model.CostLine{Name: "dc_fees", Amount: round2(dcFees)})
	}
	if lodging > 0 {
		lines = append(lines, model.CostLine{Name: "lodging", Amount: round2(lodging)})
	}
	if in.Tolls != nil && in.Tolls.TotalTolls > 0 {
		lines = append(lines, model.CostLine{Name: "tolls", Amount: round2(in.Tolls.TotalTolls)})
	}

	fees := serviceFees(in.Load, s)

	total := 0.0
	for _, l := range lines {
		total += l.Amount
	}
	for _, f := range fees {
		total += f.Amount
	}

	return model.CostSummary{
		Lines:       lines,
		ServiceFees: fees,
		TotalCost:   round2(total),
		CostPerMile: round3(total / miles),
	}
}

// serviceFees sums only the add-ons the load explicitly requests.
func serviceFees(load model.LoadAttributes, s model.CostSettings) []model.CostLine {
	var fees []model.CostLine
	add := func(name string, amount float64) {
		if amount > 0 {
			fees = append(fees, model.CostLine{Name: name, Amount: round2(amount)})
		}
	}
	if load.Liftgate {
		add("liftgate", s.LiftgateFee)
	}
	if load.PalletJack {
		add("pallet_jack", s.PalletJackFee)
	}
	if load.DriverAssist {
		add("driver_assist", s.DriverAssistFee)
	}
	if load.WhiteGlove {
		add("white_glove", s.WhiteGloveFee)
	}
	if load.Tracking {
		add("tracking", s.TrackingFee)
	}
	if load.ReeferHours > 0 {
		add("reefer", s.ReeferPerHour*load.ReeferHours)
	}
	return fees
}
