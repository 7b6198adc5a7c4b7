package rates

import "ratedesk/internal/model"

// Supply/demand flow model. Pure function of the two regions; unknown
// input degrades to a balanced default instead of failing.

// Ratio bands per direction. Within a band the truck-to-load ratio is a
// deterministic linear interpolation keyed by the imbalance score, so
// repeated calls on the same lane always agree.
const (
	headhaulRatioLo = 1.2
	headhaulRatioHi = 1.8
	balancedRatioLo = 1.8
	balancedRatioHi = 2.6
	backhaulRatioLo = 3.0
	backhaulRatioHi = 5.0

	defaultRatio = 2.0
)

// AnalyzeFlow derives freight direction and market temperature for an
// origin region -> destination region pair.
func AnalyzeFlow(origin, dest Region) model.FlowAnalysis {
	op, okO := regionProfiles[origin]
	dp, okD := regionProfiles[dest]
	if !okO || !okD {
		return model.FlowAnalysis{
			Direction:        model.FlowBalanced,
			TruckToLoadRatio: defaultRatio,
			Temperature:      temperatureFor(defaultRatio),
		}
	}

	demand := (op.OutboundStrength + dp.InboundStrength) / 2
	imbalance := demand - op.TruckPopulation

	var dir model.FlowDirection
	var ratio float64
	switch {
	case imbalance > 2:
		dir = model.FlowHeadhaul
		// deeper imbalance -> tighter market -> lower ratio
		ratio = headhaulRatioHi - (headhaulRatioHi-headhaulRatioLo)*unit((imbalance-2)/4)
	case imbalance < -2:
		dir = model.FlowBackhaul
		ratio = backhaulRatioLo + (backhaulRatioHi-backhaulRatioLo)*unit((-imbalance-2)/4)
	default:
		dir = model.FlowBalanced
		ratio = midpoint(balancedRatioLo, balancedRatioHi) - 0.4*unit2(imbalance/2)
	}

	return model.FlowAnalysis{
		Direction:        dir,
		ImbalanceScore:   imbalance,
		TruckToLoadRatio: round2(ratio),
		Temperature:      temperatureFor(ratio),
	}
}

// temperatureFor classifies the truck-to-load ratio into a market label.
func temperatureFor(ratio float64) model.MarketTemperature {
	switch {
	case ratio < 1.5:
		return model.TempHot
	case ratio < 2.0:
		return model.TempWarm
	case ratio < 3.0:
		return model.TempBalanced
	case ratio < 4.0:
		return model.TempCool
	default:
		return model.TempCold
	}
}

// FlowMultiplier maps a flow analysis to the market rate adjustment:
// headhaul lanes earn +8% to +15%, backhaul lanes give back 5% to 12%.
func FlowMultiplier(fa model.FlowAnalysis) float64 {
	switch fa.Direction {
	case model.FlowHeadhaul:
		return round3(1.08 + 0.07*unit((fa.ImbalanceScore-2)/4))
	case model.FlowBackhaul:
		return round3(0.95 - 0.07*unit((-fa.ImbalanceScore-2)/4))
	default:
		return 1.0
	}
}

// unit clamps to [0,1].
func unit(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// unit2 clamps to [-1,1].
func unit2(t float64) float64 {
	if t < -1 {
		return -1
	}
	if t > 1 {
		return 1
	}
	return t
}

func midpoint(a, b float64) float64 { return (a + b) / 2 }
