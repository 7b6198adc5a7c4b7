package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer()
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body []byte, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	handler(rr, req)
	return rr
}

func TestQuoteCreateListGet(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"route":{"originState":"GA","destinationState":"FL","totalMiles":350,"deadheadMiles":40},"load":{"weightLbs":18000}}`)
	rr := postJSON(t, s.QuotesHandler, "/v1/quotes", body, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("quote create: got %d body=%s", rr.Code, rr.Body.String())
	}
	var created struct {
		ID   string `json:"id"`
		Rate struct {
			RecommendedRate float64 `json:"recommendedRate"`
			RatePerMile     float64 `json:"ratePerMile"`
		} `json:"rate"`
		Score struct {
			Rating string `json:"rating"`
		} `json:"score"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if created.ID == "" {
		t.Fatal("quote id should be set")
	}
	if created.Rate.RecommendedRate <= 0 || created.Rate.RatePerMile <= 0 {
		t.Fatalf("rates should be positive: %+v", created.Rate)
	}
	if created.Score.Rating == "" {
		t.Fatal("score rating should be set")
	}

	rr = httptest.NewRecorder()
	s.QuotesHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/quotes?limit=10", nil))
	if rr.Code != 200 {
		t.Fatalf("quote list: got %d", rr.Code)
	}
	var idx struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &idx); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(idx.Items) != 1 || idx.Items[0].ID != created.ID {
		t.Fatalf("list should contain the created quote: %+v", idx.Items)
	}

	rr = httptest.NewRecorder()
	s.QuoteByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/quotes/"+created.ID, nil))
	if rr.Code != 200 {
		t.Fatalf("quote get: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.QuoteByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/quotes/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing quote: got %d", rr.Code)
	}
}

func TestQuoteValidation(t *testing.T) {
	s := newTestServer(t)
	cases := []string{
		`{"route":{"originState":"GA","destinationState":"FL","totalMiles":0}}`,
		`{"route":{"originState":"GA","destinationState":"FL","totalMiles":100,"deadheadMiles":200}}`,
		`{"route":{"originState":"GA","destinationState":"FL","totalMiles":100},"load":{"weightLbs":-1}}`,
		`{"route":{"originState":"GA","destinationState":"FL","totalMiles":100},"fuelPricePerGallon":-2}`,
	}
	for _, c := range cases {
		rr := postJSON(t, s.QuotesHandler, "/v1/quotes", []byte(c), nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("case %s: got %d, want 400", c, rr.Code)
		}
	}
}

func TestSettingsLifecycle(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.SettingsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/settings/tractor", nil))
	if rr.Code != 200 {
		t.Fatalf("settings get: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/v1/settings/tractor", bytes.NewReader([]byte(`{"targetProfitMargin":0.45}`)))
	req.Header.Set("Content-Type", "application/json")
	s.SettingsHandler(rr, req)
	if rr.Code != 200 {
		t.Fatalf("settings patch: got %d body=%s", rr.Code, rr.Body.String())
	}
	var got struct {
		TargetProfitMargin float64 `json:"targetProfitMargin"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if got.TargetProfitMargin != 0.45 {
		t.Fatalf("margin = %v, want 0.45", got.TargetProfitMargin)
	}

	// patched settings flow into quotes
	body := []byte(`{"route":{"originState":"GA","destinationState":"FL","totalMiles":350}}`)
	rr = postJSON(t, s.QuotesHandler, "/v1/quotes", body, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("quote after patch: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.SettingsHandler(rr, httptest.NewRequest(http.MethodDelete, "/v1/settings/tractor", nil))
	if rr.Code != 200 {
		t.Fatalf("settings reset: got %d", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode reset: %v", err)
	}
	if got.TargetProfitMargin == 0.45 {
		t.Fatal("reset should restore defaults")
	}

	rr = httptest.NewRecorder()
	s.SettingsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/settings/hovercraft", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown category: got %d", rr.Code)
	}
}

func TestMarketRatesHandler(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"originState":"CA","destState":"TX","totalMiles":1400,"freightClass":"general","pickupMonth":7}`)
	rr := postJSON(t, s.MarketRatesHandler, "/v1/market-rates", body, nil)
	if rr.Code != 200 {
		t.Fatalf("market rates: got %d body=%s", rr.Code, rr.Body.String())
	}
	var res struct {
		TotalMid   float64 `json:"totalMid"`
		Confidence float64 `json:"confidence"`
		Flow       struct {
			Direction string `json:"direction"`
		} `json:"flow"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode market: %v", err)
	}
	if res.TotalMid <= 0 {
		t.Fatalf("totalMid should be positive: %v", res.TotalMid)
	}
	if res.Confidence < 40 || res.Confidence > 95 {
		t.Fatalf("confidence out of band: %v", res.Confidence)
	}
	if res.Flow.Direction == "" {
		t.Fatal("flow direction should be set")
	}

	rr = postJSON(t, s.MarketRatesHandler, "/v1/market-rates", []byte(`{"originState":"CA","destState":"TX","totalMiles":1400,"pickupMonth":13}`), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad month: got %d", rr.Code)
	}
}

func TestScoresHandler(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"originState":"IL","destState":"NJ","totalMiles":800,"deadheadMiles":60,"profitMargin":0.24}`)
	rr := postJSON(t, s.ScoresHandler, "/v1/scores", body, nil)
	if rr.Code != 200 {
		t.Fatalf("scores: got %d body=%s", rr.Code, rr.Body.String())
	}
	var res struct {
		Score struct {
			Overall float64 `json:"overall"`
			Rating  string  `json:"rating"`
		} `json:"score"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode score: %v", err)
	}
	if res.Score.Overall < 0 || res.Score.Overall > 10 {
		t.Fatalf("overall out of range: %v", res.Score.Overall)
	}
	if res.Score.Rating == "" {
		t.Fatal("rating should be set")
	}

	rr = postJSON(t, s.ScoresHandler, "/v1/scores", []byte(`{"originState":"IL","destState":"NJ","totalMiles":0}`), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad miles: got %d", rr.Code)
	}
}

func TestVehiclesCRUD(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"name":"unit 7","profile":{"category":"reefer","mpg":6.2}}`)
	rr := postJSON(t, s.VehiclesHandler, "/v1/vehicles", body, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("vehicle create: got %d body=%s", rr.Code, rr.Body.String())
	}
	var v struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil || v.ID == "" {
		t.Fatalf("decode vehicle: %v id=%q", err, v.ID)
	}

	rr = postJSON(t, s.VehiclesHandler, "/v1/vehicles", []byte(`{"name":"bad","profile":{"category":"hovercraft"}}`), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad category: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.VehiclesHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/vehicles", nil))
	if rr.Code != 200 {
		t.Fatalf("vehicle list: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.VehicleByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/vehicles/"+v.ID, nil))
	if rr.Code != 200 {
		t.Fatalf("vehicle get: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.VehicleByIDHandler(rr, httptest.NewRequest(http.MethodDelete, "/v1/vehicles/"+v.ID, nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("vehicle delete: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.VehicleByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/vehicles/"+v.ID, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("deleted vehicle: got %d", rr.Code)
	}
}

func TestQuoteEnqueuesWebhook(t *testing.T) {
	s := newTestServer(t)
	admin := map[string]string{"X-Role": "admin"}
	subBody := []byte(`{"url":"https://example.invalid/webhook","events":["quote.created"],"secret":"shh"}`)
	rr := postJSON(t, s.SubscriptionsHandler, "/v1/subscriptions", subBody, admin)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create sub: %d body=%s", rr.Code, rr.Body.String())
	}

	// non-admins cannot manage subscriptions
	rr = postJSON(t, s.SubscriptionsHandler, "/v1/subscriptions", subBody, map[string]string{"X-Role": "user"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("non-admin sub: got %d", rr.Code)
	}

	body := []byte(`{"route":{"originState":"GA","destinationState":"FL","totalMiles":350}}`)
	rr = postJSON(t, s.QuotesHandler, "/v1/quotes", body, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("quote: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/webhook-deliveries?limit=5", nil)
	req.Header.Set("X-Role", "admin")
	s.WebhookDeliveriesHandler(rr, req)
	if rr.Code != 200 {
		t.Fatalf("deliveries: %d", rr.Code)
	}
	var dres struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &dres); err != nil {
		t.Fatalf("decode deliveries: %v", err)
	}
	if len(dres.Items) == 0 {
		t.Fatal("expected at least one delivery")
	}
	if et, ok := dres.Items[0]["eventType"].(string); !ok || et != "quote.created" {
		t.Fatalf("eventType = %v", dres.Items[0]["eventType"])
	}
}

func TestSubscriptionValidation(t *testing.T) {
	s := newTestServer(t)
	admin := map[string]string{"X-Role": "admin"}
	cases := []string{
		`{"url":"not-a-url","events":["quote.created"]}`,
		`{"url":"ftp://example.com/x","events":["quote.created"]}`,
		`{"url":"https://example.com/x","events":[]}`,
		`{"url":"https://example.com/x","events":[" "]}`,
	}
	for _, c := range cases {
		rr := postJSON(t, s.SubscriptionsHandler, "/v1/subscriptions", []byte(c), admin)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("case %s: got %d, want 400", c, rr.Code)
		}
	}
}

// sseRecorder is a minimal ResponseWriter that implements http.Flusher
// and captures writes for SSE tests.
type sseRecorder struct {
	hdr  http.Header
	buf  bytes.Buffer
	code int
}

func (r *sseRecorder) Header() http.Header {
	if r.hdr == nil {
		r.hdr = http.Header{}
	}
	return r.hdr
}
func (r *sseRecorder) WriteHeader(c int)           { r.code = c }
func (r *sseRecorder) Write(p []byte) (int, error) { return r.buf.Write(p) }
func (r *sseRecorder) Flush()                      {}

func TestQuoteEventsSSE(t *testing.T) {
	s := newTestServer(t)
	sseReq := httptest.NewRequest(http.MethodGet, "/v1/quotes/events/stream", nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sseReq = sseReq.WithContext(ctx)

	rec := &sseRecorder{}
	done := make(chan struct{})
	go func() {
		s.QuoteByIDHandler(rec, sseReq)
		close(done)
	}()

	// give the handler time to subscribe and write its first heartbeat
	time.Sleep(50 * time.Millisecond)
	s.Broker.Publish("c_demo", SSEEvent{Type: "quote.created", Data: map[string]any{"quoteId": "q1"}})

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if bytes.Contains(rec.buf.Bytes(), []byte("event: quote.created")) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !bytes.Contains(rec.buf.Bytes(), []byte("event: quote.created")) {
		t.Fatalf("SSE did not contain expected event. Body: %s", rec.buf.String())
	}
	cancel()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("handler did not exit after cancel")
	}
}
