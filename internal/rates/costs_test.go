package rates

import (
	"testing"

	"ratedesk/internal/model"
)

func testSettings() model.CostSettings {
	s := DefaultSettings(model.CategoryTractor)
	s.AnnualInsurance = 10000
	s.MonthlyPayment = 1000
	s.AnnualLicensing = 2000
	s.MonthlyOverhead = 1000
	s.AnnualMiles = 100000
	s.MaintenanceCPM = 0.20
	s.TireCPM = 0.05
	s.DEFPricePerGallon = 3.20
	s.NightlyLodging = 120
	return s
}

func TestResolveSettingsDefaults(t *testing.T) {
	// No stored record: pure category defaults.
	eff := ResolveSettings(model.CategoryTractor, nil, nil)
	if eff != DefaultSettings(model.CategoryTractor) {
		t.Fatalf("nil stored should resolve to category defaults")
	}

	// Sparse stored record: set fields win, zero fields fall back.
	stored := model.CostSettings{MaintenanceCPM: 0.25}
	eff = ResolveSettings(model.CategoryTractor, &stored, nil)
	if eff.MaintenanceCPM != 0.25 {
		t.Errorf("stored maintenance cpm lost: %.2f", eff.MaintenanceCPM)
	}
	if eff.FactoringRate != DefaultSettings(model.CategoryTractor).FactoringRate {
		t.Errorf("unset factoring rate should default")
	}

	// Request-level override wins over both.
	fr := 0.05
	eff = ResolveSettings(model.CategoryTractor, &stored, &model.SettingsPatch{FactoringRate: &fr})
	if eff.FactoringRate != 0.05 {
		t.Errorf("override factoring rate = %.2f; want 0.05", eff.FactoringRate)
	}
}

func TestResolveSettingsUnknownCategory(t *testing.T) {
	eff := ResolveSettings("hovercraft", nil, nil)
	if eff != DefaultSettings(model.CategoryTractor) {
		t.Errorf("unknown category should price as tractor")
	}
}

func TestComputeCostsFormulas(t *testing.T) {
	in := CostInput{
		Route:     model.Route{TotalMiles: 400},
		Vehicle:   model.VehicleProfile{Category: model.CategoryTractor, MPG: 8},
		Settings:  testSettings(),
		FuelPrice: 4.00,
	}
	sum := ComputeCosts(in)

	want := map[string]float64{
		"fuel":        200.00, // 4.00/8 * 400
		"def":         3.20,   // 400/400 * 3.20
		"maintenance": 80.00,
		"tires":       20.00,
		"fixed_costs": 144.00, // (10000+12000+2000+12000)/100000 * 400
	}
	got := map[string]float64{}
	for _, l := range sum.Lines {
		got[l.Name] = l.Amount
	}
	for name, amount := range want {
		if got[name] != amount {
			t.Errorf("%s = %.2f; want %.2f", name, got[name], amount)
		}
	}
	// 400 mi = 8 drive hours, under the 11-hour cap: no lodging line.
	if _, ok := got["lodging"]; ok {
		t.Errorf("unexpected lodging line on a single-day run")
	}
	if sum.TotalCost != 447.20 {
		t.Errorf("total = %.2f; want 447.20", sum.TotalCost)
	}
	if sum.CostPerMile != round3(447.20/400) {
		t.Errorf("cpm = %.3f; want %.3f", sum.CostPerMile, round3(447.20/400))
	}
}

func TestLodgingNights(t *testing.T) {
	in := CostInput{
		Route:     model.Route{TotalMiles: 1200}, // 24h drive -> 2 nights
		Vehicle:   model.VehicleProfile{Category: model.CategoryTractor, MPG: 8},
		Settings:  testSettings(),
		FuelPrice: 4.00,
	}
	sum := ComputeCosts(in)
	for _, l := range sum.Lines {
		if l.Name == "lodging" {
			if l.Amount != 240 {
				t.Fatalf("lodging = %.2f; want 240 (2 nights)", l.Amount)
			}
			return
		}
	}
	t.Fatal("no lodging line for a multi-day run")
}

func TestDCAndServiceFees(t *testing.T) {
	in := CostInput{
		Route:    model.Route{TotalMiles: 400},
		Vehicle:  model.VehicleProfile{Category: model.CategoryTractor, MPG: 8},
		Settings: testSettings(),
		Load: model.LoadAttributes{
			DCPickup:    true,
			DCDelivery:  true,
			Liftgate:    true,
			Tracking:    true,
			ReeferHours: 10,
		},
		FuelPrice: 4.00,
	}
	s := in.Settings
	sum := ComputeCosts(in)

	var dc float64
	for _, l := range sum.Lines {
		if l.Name == "dc_fees" {
			dc = l.Amount
		}
	}
	if dc != s.DCFee*2 {
		t.Errorf("dc_fees = %.2f; want %.2f", dc, s.DCFee*2)
	}

	fees := map[string]float64{}
	for _, f := range sum.ServiceFees {
		fees[f.Name] = f.Amount
	}
	if fees["liftgate"] != s.LiftgateFee || fees["tracking"] != s.TrackingFee {
		t.Errorf("requested fees missing: %+v", fees)
	}
	if fees["reefer"] != round2(s.ReeferPerHour*10) {
		t.Errorf("reefer fee = %.2f; want %.2f", fees["reefer"], s.ReeferPerHour*10)
	}
	if _, ok := fees["white_glove"]; ok {
		t.Errorf("unrequested white_glove fee charged")
	}
}

func TestTollsAdditive(t *testing.T) {
	in := CostInput{
		Route:     model.Route{TotalMiles: 400},
		Vehicle:   model.VehicleProfile{Category: model.CategoryTractor, MPG: 8},
		Settings:  testSettings(),
		FuelPrice: 4.00,
	}
	base := ComputeCosts(in)
	in.Tolls = &model.TollContext{TotalTolls: 62.50}
	tolled := ComputeCosts(in)
	if diff := round2(tolled.TotalCost - base.TotalCost); diff != 62.50 {
		t.Errorf("toll delta = %.2f; want 62.50", diff)
	}
}

func TestFuelPriceFallback(t *testing.T) {
	in := CostInput{
		Route:    model.Route{TotalMiles: 400},
		Vehicle:  model.VehicleProfile{Category: model.CategoryTractor, MPG: 8},
		Settings: testSettings(),
	}
	sum := ComputeCosts(in) // FuelPrice zero -> DefaultFuelPrice
	want := round2(DefaultFuelPrice / 8 * 400)
	if sum.Lines[0].Name != "fuel" || sum.Lines[0].Amount != want {
		t.Errorf("fallback fuel = %+v; want %.2f", sum.Lines[0], want)
	}
}
