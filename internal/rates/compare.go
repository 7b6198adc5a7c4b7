package rates

import "ratedesk/internal/model"

// Market comparison: positions a quoted total against the lane's
// low/mid/high band.

// atMarketTolerance is the +/- fraction around market mid that still
// classifies as at_market.
const atMarketTolerance = 0.05

// CompareToMarket classifies a quoted total for the same miles against a
// MarketRateResult. Feeding the market mid back yields at_market at the
// 50th percentile.
func CompareToMarket(quotedTotal, totalMiles float64, market model.MarketRateResult) model.MarketComparison {
	rpm := quotedTotal / totalMiles
	low, mid, high := market.PerMile.Low, market.PerMile.Mid, market.PerMile.High

	var pos model.MarketPosition
	switch {
	case rpm < mid*(1-atMarketTolerance):
		pos = model.BelowMarket
	case rpm > mid*(1+atMarketTolerance):
		pos = model.AboveMarket
	default:
		pos = model.AtMarket
	}

	return model.MarketComparison{
		Position:     pos,
		Percentile:   round2(percentile(rpm, low, mid, high)),
		DeltaPerMile: round3(rpm - mid),
	}
}

// percentile maps a per-mile rate onto the band: low=10, mid=50, high=90,
// linearly interpolated, clamped to [1,99] outside the band.
func percentile(rpm, low, mid, high float64) float64 {
	switch {
	case rpm <= low:
		p := 10 * (rpm / low)
		if p < 1 {
			p = 1
		}
		return p
	case rpm <= mid:
		return 10 + 40*(rpm-low)/(mid-low)
	case rpm <= high:
		return 50 + 40*(rpm-mid)/(high-mid)
	default:
		p := 90 + 9*(rpm-high)/high
		if p > 99 {
			p = 99
		}
		return p
	}
}
