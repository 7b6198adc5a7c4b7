package rates

import (
	"fmt"
	"math"

	"ratedesk/internal/model"
)

// Market benchmark engine. Composes lane x distance x equipment x season
// x flow multipliers into market low/mid/high rates. Missing or malformed
// input degrades to defaults; this path never errors.

// MarketQuery is the input to CalculateMarketRate.
type MarketQuery struct {
	OriginState  string
	DestState    string
	TotalMiles   float64
	FreightClass model.FreightClass
	PickupMonth  int // 1-12; 0 means unknown, priced at the neutral band
}

const (
	confidenceFloor   = 40
	confidenceCeiling = 95
)

// CalculateMarketRate produces the independent market-benchmark estimate
// for a lane.
func CalculateMarketRate(q MarketQuery) model.MarketRateResult {
	origin := RegionForState(q.OriginState)
	dest := RegionForState(q.DestState)

	base, known := Benchmark(origin, dest)
	flow := AnalyzeFlow(origin, dest)

	distMult := DistanceMultiplier(q.TotalMiles)
	equipMult := EquipmentMultiplier(q.FreightClass)
	seasonMult := SeasonalMultiplier(q.PickupMonth)
	flowMult := FlowMultiplier(flow)

	factors := []model.MarketFactor{
		{Name: "lane_base", Multiplier: 1.0, Description: laneDescription(origin, dest, known)},
		{Name: "distance", Multiplier: distMult, Description: fmt.Sprintf("%.0f mile length of haul", q.TotalMiles)},
		{Name: "equipment", Multiplier: equipMult, Description: string(q.FreightClass) + " equipment premium"},
		{Name: "season", Multiplier: seasonMult, Description: "seasonal demand band"},
		{Name: "flow", Multiplier: flowMult, Description: string(flow.Direction) + " lane flow"},
	}

	total := distMult * equipMult * seasonMult * flowMult

	perMile := model.RateBenchmark{
		Low:  round2(base.Low * total),
		Mid:  round2(base.Mid * total),
		High: round2(base.High * total),
	}

	ret, avgReturn := returnOutlook(dest, perMile.Mid)
	conf := confidence(origin, dest, known, q.TotalMiles)

	return model.MarketRateResult{
		OriginRegion:    string(origin),
		DestRegion:      string(dest),
		PerMile:         perMile,
		TotalLow:        round2(perMile.Low * q.TotalMiles),
		TotalMid:        round2(perMile.Mid * q.TotalMiles),
		TotalHigh:       round2(perMile.High * q.TotalMiles),
		TotalMultiplier: round3(total),
		Factors:         factors,
		Flow:            flow,
		Confidence:      conf,
		ConfidenceLabel: confidenceLabel(conf),
		ReturnPotential: ret,
		AvgReturnRPM:    avgReturn,
	}
}

func laneDescription(origin, dest Region, known bool) string {
	if !known {
		return "national fallback benchmark"
	}
	return string(origin) + " to " + string(dest) + " lane benchmark"
}

// confidence scores 40-95: known regions and standard distance raise it,
// unknown regions and extreme distances pull it down.
func confidence(origin, dest Region, knownLane bool, miles float64) float64 {
	score := 60.0
	if origin != "" && dest != "" {
		score += 10
		if knownLane {
			score += 5
		}
	} else {
		score -= 15
	}
	if p, ok := regionProfiles[origin]; ok && p.MajorLane {
		score += 5
	}
	if p, ok := regionProfiles[dest]; ok && p.MajorLane {
		score += 5
	}
	switch {
	case miles >= 400 && miles <= 1500:
		score += 10
	case miles < 150 || miles > 1800:
		score -= 10
	}
	if score < confidenceFloor {
		score = confidenceFloor
	}
	if score > confidenceCeiling {
		score = confidenceCeiling
	}
	return score
}

func confidenceLabel(score float64) string {
	switch {
	case score >= 75:
		return "high"
	case score >= 55:
		return "medium"
	default:
		return "low"
	}
}

// returnOutlook derives return-load potential for the destination region
// and the expected return rate as a fraction (0.70-0.95) of market mid,
// scaled by the region's outbound strength.
func returnOutlook(dest Region, marketMid float64) (model.ReturnLoadPotential, float64) {
	ret, ok := returnPotentials[dest]
	outbound := 5.0
	if ok {
		outbound = regionProfiles[dest].OutboundStrength
	} else {
		ret = defaultReturnPotential
	}
	frac := 0.70 + 0.025*outbound
	if frac > 0.95 {
		frac = 0.95
	}
	return ret, round2(marketMid * frac)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
