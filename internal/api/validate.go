package api

import (
	"fmt"
	"net/url"
	"strings"

	"ratedesk/internal/model"
	"ratedesk/internal/rates"
)

// Boundary validation. The engine itself assumes these invariants hold.
func validateQuoteRequest(req *model.QuoteRequest) error {
	if req.Route.TotalMiles <= 0 {
		return fmt.Errorf("route.totalMiles must be > 0")
	}
	if req.Route.DeadheadMiles < 0 {
		return fmt.Errorf("route.deadheadMiles must be >= 0")
	}
	if req.Route.DeadheadMiles > req.Route.TotalMiles {
		return fmt.Errorf("route.deadheadMiles must not exceed route.totalMiles")
	}
	if req.Load.WeightLbs < 0 {
		return fmt.Errorf("load.weightLbs must be >= 0")
	}
	if req.Load.ReeferHours < 0 {
		return fmt.Errorf("load.reeferHours must be >= 0")
	}
	if req.FuelPricePerGal < 0 {
		return fmt.Errorf("fuelPricePerGallon must be >= 0")
	}
	if req.Tolls != nil && req.Tolls.TotalTolls < 0 {
		return fmt.Errorf("tolls.totalTolls must be >= 0")
	}
	return nil
}

func validateMarketQuery(q *rates.MarketQuery) error {
	if q.TotalMiles <= 0 {
		return fmt.Errorf("totalMiles must be > 0")
	}
	if q.PickupMonth < 0 || q.PickupMonth > 12 {
		return fmt.Errorf("pickupMonth must be in [0,12]")
	}
	return nil
}

func validateSubscription(req *model.SubscriptionRequest) error {
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL")
	}
	if len(req.Events) == 0 {
		return fmt.Errorf("events must not be empty")
	}
	for _, e := range req.Events {
		if strings.TrimSpace(e) == "" {
			return fmt.Errorf("events must not contain empty entries")
		}
	}
	return nil
}
