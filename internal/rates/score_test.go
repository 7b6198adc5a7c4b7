package rates

import (
	"testing"

	"ratedesk/internal/model"
)

func TestScoreExcellentLoad(t *testing.T) {
	// No deadhead, hot destination, no alerts, return score 9.
	score := ScoreLoad(ScoreInput{
		ProfitMargin:    0.26,
		DestTemperature: model.TempHot,
		TotalMiles:      500,
		DeadheadMiles:   0,
		Weather:         &model.WeatherContext{HasAlerts: false},
		ReturnScore:     9,
	})
	if score.Overall < 9 {
		t.Fatalf("overall = %.2f; want >= 9", score.Overall)
	}
	if score.Rating != "EXCELLENT LOAD" {
		t.Fatalf("rating = %q; want EXCELLENT LOAD", score.Rating)
	}
}

func TestScoreAvoidLoad(t *testing.T) {
	// 60% deadhead, cold market, severe alert, 8% margin.
	score := ScoreLoad(ScoreInput{
		ProfitMargin:    0.08,
		DestTemperature: model.TempCold,
		TotalMiles:      500,
		DeadheadMiles:   300,
		Weather: &model.WeatherContext{
			HasAlerts:   true,
			RouteAlerts: []model.WeatherAlert{{Type: "winter storm", Severity: "severe", State: "KS"}},
		},
		ReturnScore: 2,
	})
	if score.Overall > 3 {
		t.Fatalf("overall = %.2f; want <= 3", score.Overall)
	}
	if score.Rating != "AVOID THIS LOAD" {
		t.Fatalf("rating = %q; want AVOID THIS LOAD", score.Rating)
	}
}

func TestScoreRange(t *testing.T) {
	inputs := []ScoreInput{
		{},
		{ProfitMargin: 1, DestTemperature: model.TempHot, ReturnScore: 10, TotalMiles: 100},
		{ProfitMargin: -0.5, DestTemperature: model.TempCold, DeadheadMiles: 400, TotalMiles: 100, ReturnScore: 0},
	}
	for i, in := range inputs {
		s := ScoreLoad(in)
		if s.Overall < 0 || s.Overall > 10 {
			t.Errorf("input %d: overall %.2f outside [0,10]", i, s.Overall)
		}
		if len(s.Factors) != 5 {
			t.Errorf("input %d: %d factors; want 5", i, len(s.Factors))
		}
	}
}

func TestRateVsCostBuckets(t *testing.T) {
	cases := []struct {
		margin float64
		score  float64
	}{
		{0.30, 10},
		{0.25, 10},
		{0.22, 8.5},
		{0.17, 7},
		{0.12, 5},
		{0.05, 2},
	}
	for _, c := range cases {
		if f := rateVsCostFactor(c.margin); f.Score != c.score {
			t.Errorf("margin %.2f: score %.1f; want %.1f", c.margin, f.Score, c.score)
		}
	}
}

func TestRateVsCostMonotonic(t *testing.T) {
	prev := -1.0
	for m := 0.0; m <= 0.40; m += 0.01 {
		f := rateVsCostFactor(m)
		if f.Score < prev {
			t.Fatalf("rate-vs-cost score decreased at margin %.2f", m)
		}
		prev = f.Score
	}
}

func TestDeadheadMonotonic(t *testing.T) {
	prev := 11.0
	for dh := 0.0; dh <= 400; dh += 20 {
		f := deadheadFactor(dh, 500)
		if f.Score > prev {
			t.Fatalf("deadhead score increased at %.0f miles", dh)
		}
		prev = f.Score
	}
}

func TestDeadheadBuckets(t *testing.T) {
	cases := []struct {
		deadhead float64
		score    float64
	}{
		{0, 10},
		{50, 9},  // 10%
		{100, 7}, // 20%
		{150, 5}, // 30%
		{250, 3}, // 50%
		{300, 1}, // 60%
	}
	for _, c := range cases {
		if f := deadheadFactor(c.deadhead, 500); f.Score != c.score {
			t.Errorf("deadhead %.0f/500: score %.0f; want %.0f", c.deadhead, f.Score, c.score)
		}
	}
}

func TestWeatherFactorLiterals(t *testing.T) {
	f := weatherFactor(nil)
	if f.Score != 7 || f.Message != "Weather data unavailable" {
		t.Fatalf("no-data factor = %+v; want score 7, unavailable message", f)
	}

	f = weatherFactor(&model.WeatherContext{HasAlerts: false})
	if f.Score != 10 || f.Message != "No weather alerts on route" {
		t.Fatalf("clear factor = %+v", f)
	}

	f = weatherFactor(&model.WeatherContext{
		HasAlerts: true,
		RouteAlerts: []model.WeatherAlert{
			{Type: "wind", Severity: "advisory"},
			{Type: "ice", Severity: "warning"},
		},
	})
	if f.Score != 5 || f.Status != "warning" {
		t.Fatalf("worst-severity factor = %+v; want score 5, status warning", f)
	}
	if f.Message != "2 weather alert(s) on route" {
		t.Fatalf("alert message = %q", f.Message)
	}
}

func TestReturnLoadBuckets(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{9.5, 10}, {9, 10}, {8, 8}, {6, 6}, {4, 4}, {1, 2},
	}
	for _, c := range cases {
		if f := returnLoadFactor(c.in); f.Score != c.want {
			t.Errorf("return score %.1f: factor %.0f; want %.0f", c.in, f.Score, c.want)
		}
	}
}

func TestRatingBands(t *testing.T) {
	cases := []struct {
		score  float64
		rating string
	}{
		{9.5, "EXCELLENT LOAD"},
		{7.2, "GOOD LOAD"},
		{5.0, "FAIR LOAD"},
		{3.1, "POOR LOAD"},
		{1.0, "AVOID THIS LOAD"},
	}
	for _, c := range cases {
		if rating, _ := ratingFor(c.score); rating != c.rating {
			t.Errorf("ratingFor(%.1f) = %q; want %q", c.score, rating, c.rating)
		}
	}
}
