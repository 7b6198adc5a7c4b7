package rates

import (
	"reflect"
	"testing"

	"ratedesk/internal/model"
)

func marketQuery() MarketQuery {
	return MarketQuery{
		OriginState:  "TX",
		DestState:    "GA",
		TotalMiles:   782,
		FreightClass: model.FreightDryVan,
		PickupMonth:  10,
	}
}

func TestMarketRateDeterminism(t *testing.T) {
	a := CalculateMarketRate(marketQuery())
	b := CalculateMarketRate(marketQuery())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("market rate not deterministic")
	}
}

func TestMarketRateKnownLane(t *testing.T) {
	res := CalculateMarketRate(marketQuery())
	if res.OriginRegion != string(SouthCentral) || res.DestRegion != string(Southeast) {
		t.Fatalf("regions = %s -> %s; want south_central -> southeast", res.OriginRegion, res.DestRegion)
	}
	// dry van, balanced flow, 782 mi: only the seasonal band applies.
	if res.TotalMultiplier != 1.14 {
		t.Errorf("total multiplier = %.3f; want 1.14", res.TotalMultiplier)
	}
	if res.PerMile.Mid != round2(1.95*1.14) {
		t.Errorf("per-mile mid = %.2f; want %.2f", res.PerMile.Mid, round2(1.95*1.14))
	}
	if res.TotalMid != round2(res.PerMile.Mid*782) {
		t.Errorf("total mid = %.2f; want %.2f", res.TotalMid, round2(res.PerMile.Mid*782))
	}
	if len(res.Factors) != 5 {
		t.Errorf("factor count = %d; want 5", len(res.Factors))
	}
}

func TestMarketRateUnknownRegionDefaults(t *testing.T) {
	q := marketQuery()
	q.OriginState = "ZZ"
	res := CalculateMarketRate(q)
	if res.OriginRegion != "" {
		t.Errorf("unknown state resolved to region %q", res.OriginRegion)
	}
	// Default benchmark scaled by the remaining multipliers.
	wantMid := round2(DefaultBenchmark.Mid * res.TotalMultiplier)
	if res.PerMile.Mid != wantMid {
		t.Errorf("fallback per-mile mid = %.2f; want %.2f", res.PerMile.Mid, wantMid)
	}
	if res.ConfidenceLabel == "high" {
		t.Errorf("unknown region should not be high confidence (got %.0f)", res.Confidence)
	}
}

func TestConfidenceRange(t *testing.T) {
	queries := []MarketQuery{
		marketQuery(),
		{OriginState: "ZZ", DestState: "QQ", TotalMiles: 60, FreightClass: model.FreightDryVan},
		{OriginState: "TX", DestState: "GA", TotalMiles: 2500, FreightClass: model.FreightDryVan},
		{OriginState: "MT", DestState: "ND", TotalMiles: 500, FreightClass: model.FreightFlatbed},
	}
	for i, q := range queries {
		res := CalculateMarketRate(q)
		if res.Confidence < 40 || res.Confidence > 95 {
			t.Errorf("query %d: confidence %.0f outside [40,95]", i, res.Confidence)
		}
	}
	if res := CalculateMarketRate(marketQuery()); res.ConfidenceLabel != "high" {
		t.Errorf("major lane, standard distance: label = %s (%.0f); want high", res.ConfidenceLabel, res.Confidence)
	}
}

func TestReturnOutlook(t *testing.T) {
	res := CalculateMarketRate(marketQuery())
	if res.ReturnPotential != returnPotentials[Southeast] {
		t.Errorf("return potential = %+v; want southeast table entry", res.ReturnPotential)
	}
	// Southeast outbound strength 8 -> fraction 0.90 of market mid.
	want := round2(res.PerMile.Mid * 0.90)
	if res.AvgReturnRPM != want {
		t.Errorf("avg return rpm = %.2f; want %.2f", res.AvgReturnRPM, want)
	}

	q := marketQuery()
	q.DestState = "ZZ"
	res = CalculateMarketRate(q)
	if res.ReturnPotential != defaultReturnPotential {
		t.Errorf("unknown dest return potential = %+v; want default", res.ReturnPotential)
	}
}

func TestRoundTripComparison(t *testing.T) {
	market := CalculateMarketRate(marketQuery())
	cmp := CompareToMarket(market.TotalMid, 782, market)
	if cmp.Position != model.AtMarket {
		t.Fatalf("round-trip position = %s; want at_market", cmp.Position)
	}
	if cmp.Percentile < 49 || cmp.Percentile > 51 {
		t.Errorf("round-trip percentile = %.1f; want ~50", cmp.Percentile)
	}
}

func TestCompareToMarketBands(t *testing.T) {
	market := CalculateMarketRate(marketQuery())
	low := CompareToMarket(market.TotalLow*0.8, 782, market)
	if low.Position != model.BelowMarket {
		t.Errorf("cheap quote position = %s; want below_market", low.Position)
	}
	high := CompareToMarket(market.TotalHigh*1.2, 782, market)
	if high.Position != model.AboveMarket {
		t.Errorf("rich quote position = %s; want above_market", high.Position)
	}
	if low.Percentile >= high.Percentile {
		t.Errorf("percentiles not ordered: %.1f >= %.1f", low.Percentile, high.Percentile)
	}
}
