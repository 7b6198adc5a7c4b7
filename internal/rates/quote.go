package rates

import "ratedesk/internal/model"

// Quote pipeline: cost accounting and market benchmarking run
// independently, the reconciler merges them, and the scorer judges the
// result. Every stage is a pure, synchronous computation; a quote is
// safe to build concurrently with any number of others.

// QuoteInput is the fully collected input for one quote. Stored settings
// and the override may be nil; ResolveSettings fills the gaps.
type QuoteInput struct {
	Route    model.Route
	Vehicle  *model.VehicleProfile
	Load     model.LoadAttributes
	Stored   *model.CostSettings
	Override *model.SettingsPatch
	// FuelPrice of 0 means the collaborator was unavailable.
	FuelPrice float64
	Tolls     *model.TollContext
	Weather   *model.WeatherContext
}

// CalculateRate runs cost accounting and reconciliation for one load.
func CalculateRate(in QuoteInput) model.RateCalculationResult {
	vehicle := effectiveVehicle(in.Vehicle)
	settings := ResolveSettings(vehicle.Category, in.Stored, in.Override)
	costs := ComputeCosts(CostInput{
		Route:     in.Route,
		Vehicle:   vehicle,
		Settings:  settings,
		Load:      in.Load,
		FuelPrice: in.FuelPrice,
		Tolls:     in.Tolls,
	})
	return Reconcile(ReconcileInput{
		Route:    in.Route,
		Category: vehicle.Category,
		Settings: settings,
		Load:     in.Load,
		Costs:    costs,
	})
}

// BuildQuote runs the full pipeline: rate, market benchmark, market
// comparison, and acceptance score.
func BuildQuote(in QuoteInput) model.QuoteResponse {
	rate := CalculateRate(in)

	market := CalculateMarketRate(MarketQuery{
		OriginState:  in.Route.OriginState,
		DestState:    in.Route.DestinationState,
		TotalMiles:   in.Route.TotalMiles,
		FreightClass: in.Load.FreightClass,
		PickupMonth:  pickupMonth(in.Load),
	})

	comparison := CompareToMarket(rate.RecommendedRate, in.Route.TotalMiles, market)

	score := ScoreLoad(ScoreInput{
		ProfitMargin:    rate.ProfitMargin,
		DestTemperature: market.Flow.Temperature,
		TotalMiles:      in.Route.TotalMiles,
		DeadheadMiles:   in.Route.DeadheadMiles,
		Weather:         in.Weather,
		ReturnScore:     market.ReturnPotential.Score,
	})

	return model.QuoteResponse{
		Rate:       rate,
		Market:     market,
		Comparison: comparison,
		Score:      score,
	}
}

func effectiveVehicle(v *model.VehicleProfile) model.VehicleProfile {
	if v == nil {
		return DefaultVehicle(model.CategoryTractor)
	}
	out := *v
	if out.MPG <= 0 {
		out.MPG = DefaultVehicle(out.Category).MPG
	}
	return out
}

func pickupMonth(load model.LoadAttributes) int {
	if load.PickupDate.IsZero() {
		return 0
	}
	return int(load.PickupDate.Month())
}
