package rates

import (
	"fmt"

	"ratedesk/internal/model"
)

// Load acceptance scorer: a stateless weighted-sum evaluator. Factor
// messages are display data, not control flow.

// Factor weights, as fractions of the overall score.
const (
	weightRateVsCost = 0.30
	weightMarket     = 0.20
	weightDeadhead   = 0.15
	weightWeather    = 0.15
	weightReturnLoad = 0.20
)

// ScoreInput is the context a finished quote is judged against.
type ScoreInput struct {
	ProfitMargin    float64
	DestTemperature model.MarketTemperature
	TotalMiles      float64
	DeadheadMiles   float64
	Weather         *model.WeatherContext // nil means no data
	ReturnScore     float64               // destination region score, 0-10
}

// ScoreLoad scores a finished quote 0-10 and picks a recommendation band.
func ScoreLoad(in ScoreInput) model.AcceptanceScore {
	factors := []model.FactorResult{
		rateVsCostFactor(in.ProfitMargin),
		marketFactor(in.DestTemperature),
		deadheadFactor(in.DeadheadMiles, in.TotalMiles),
		weatherFactor(in.Weather),
		returnLoadFactor(in.ReturnScore),
	}

	total := 0.0
	for _, f := range factors {
		total += f.Score * f.Weight / 100
	}
	if total < 0 {
		total = 0
	}
	if total > 10 {
		total = 10
	}

	rating, rec := ratingFor(total)
	return model.AcceptanceScore{
		Overall:        round2(total),
		Rating:         rating,
		Recommendation: rec,
		Factors:        factors,
	}
}

func ratingFor(score float64) (rating, recommendation string) {
	switch {
	case score >= 9:
		return "EXCELLENT LOAD", "Accept this load. Strong on every factor."
	case score >= 7:
		return "GOOD LOAD", "Accept this load. Favorable overall."
	case score >= 5:
		return "FAIR LOAD", "Consider this load. Weigh the weak factors first."
	case score >= 3:
		return "POOR LOAD", "Not recommended. Take only to reposition."
	default:
		return "AVOID THIS LOAD", "Reject this load."
	}
}

func rateVsCostFactor(margin float64) model.FactorResult {
	f := model.FactorResult{
		Name:   "Rate vs Cost",
		Weight: weightRateVsCost * 100,
		Detail: fmt.Sprintf("profit margin %.1f%%", margin*100),
	}
	switch {
	case margin >= 0.25:
		f.Score, f.Status, f.Message = 10, "excellent", "Margin well above target"
	case margin >= 0.20:
		f.Score, f.Status, f.Message = 8.5, "good", "Margin comfortably above cost"
	case margin >= 0.15:
		f.Score, f.Status, f.Message = 7, "fair", "Margin acceptable"
	case margin >= 0.10:
		f.Score, f.Status, f.Message = 5, "marginal", "Margin thin for this lane"
	default:
		f.Score, f.Status, f.Message = 2, "poor", "Margin below sustainable floor"
	}
	return f
}

var marketScores = map[model.MarketTemperature]float64{
	model.TempHot:      10,
	model.TempWarm:     8,
	model.TempBalanced: 6,
	model.TempCool:     4,
	model.TempCold:     2,
}

func marketFactor(temp model.MarketTemperature) model.FactorResult {
	score, ok := marketScores[temp]
	if !ok {
		score = 6
		temp = model.TempBalanced
	}
	f := model.FactorResult{
		Name:   "Market Conditions",
		Weight: weightMarket * 100,
		Score:  score,
		Detail: "destination market " + string(temp),
	}
	switch {
	case score >= 8:
		f.Status, f.Message = "favorable", "Destination market favors carriers"
	case score >= 6:
		f.Status, f.Message = "neutral", "Destination market is balanced"
	default:
		f.Status, f.Message = "unfavorable", "Destination market favors shippers"
	}
	return f
}

func deadheadFactor(deadhead, total float64) model.FactorResult {
	pct := 0.0
	if total > 0 {
		pct = deadhead / total * 100
	}
	f := model.FactorResult{
		Name:   "Deadhead Distance",
		Weight: weightDeadhead * 100,
		Detail: fmt.Sprintf("%.0f deadhead miles (%.0f%% of trip)", deadhead, pct),
	}
	switch {
	case pct == 0:
		f.Score, f.Status, f.Message = 10, "excellent", "No empty miles"
	case pct <= 10:
		f.Score, f.Status, f.Message = 9, "good", "Minimal empty miles"
	case pct <= 20:
		f.Score, f.Status, f.Message = 7, "fair", "Moderate empty miles"
	case pct <= 30:
		f.Score, f.Status, f.Message = 5, "marginal", "Significant empty miles"
	case pct <= 50:
		f.Score, f.Status, f.Message = 3, "poor", "Heavy empty miles"
	default:
		f.Score, f.Status, f.Message = 1, "bad", "Deadhead dominates this trip"
	}
	return f
}

var alertScores = map[string]float64{
	"advisory": 8,
	"watch":    7,
	"warning":  5,
	"severe":   2,
}

func weatherFactor(wx *model.WeatherContext) model.FactorResult {
	f := model.FactorResult{Name: "Weather Risk", Weight: weightWeather * 100}
	if wx == nil {
		f.Score, f.Status, f.Message = 7, "unknown", "Weather data unavailable"
		f.Detail = "scored neutral without route weather"
		return f
	}
	if !wx.HasAlerts || len(wx.RouteAlerts) == 0 {
		f.Score, f.Status, f.Message = 10, "clear", "No weather alerts on route"
		return f
	}
	// Score by the worst alert on the route.
	score := 8.0
	worst := "advisory"
	for _, a := range wx.RouteAlerts {
		if s, ok := alertScores[a.Severity]; ok && s < score {
			score, worst = s, a.Severity
		}
	}
	f.Score = score
	f.Status = worst
	f.Message = fmt.Sprintf("%d weather alert(s) on route", len(wx.RouteAlerts))
	f.Detail = "worst severity: " + worst
	return f
}

func returnLoadFactor(score float64) model.FactorResult {
	f := model.FactorResult{
		Name:   "Return Load Potential",
		Weight: weightReturnLoad * 100,
		Detail: fmt.Sprintf("destination return score %.1f/10", score),
	}
	switch {
	case score >= 9:
		f.Score, f.Status, f.Message = 10, "excellent", "Return loads nearly guaranteed"
	case score >= 7:
		f.Score, f.Status, f.Message = 8, "good", "Return loads likely"
	case score >= 5:
		f.Score, f.Status, f.Message = 6, "fair", "Return loads possible"
	case score >= 3:
		f.Score, f.Status, f.Message = 4, "poor", "Return loads scarce"
	default:
		f.Score, f.Status, f.Message = 2, "bad", "Expect an empty return leg"
	}
	return f
}
