package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ratedesk/internal/buildinfo"
	"ratedesk/internal/metrics"
	"ratedesk/internal/model"
	"ratedesk/internal/rates"
	"ratedesk/internal/store"
)

var knownCategories = map[model.VehicleCategory]struct{}{
	model.CategoryTractor:  {},
	model.CategoryBoxTruck: {},
	model.CategoryCargoVan: {},
	model.CategorySprinter: {},
	model.CategoryReefer:   {},
}

// QuotesHandler handles POST/GET /v1/quotes
func (s *Server) QuotesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req model.QuoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateQuoteRequest(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid quote request", err.Error(), r.URL.Path)
			return
		}
		ctx, carrier := s.withCarrier(r)

		cat := model.CategoryTractor
		if req.Vehicle != nil && req.Vehicle.Category != "" {
			cat = req.Vehicle.Category
		}
		stored, err := s.Store.GetSettings(ctx, carrier, cat)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Load settings failed", err.Error(), r.URL.Path)
			return
		}

		fuelPrice := req.FuelPricePerGal
		if fuelPrice == 0 && s.Fuel != nil {
			if p, err := s.Fuel.Price(ctx); err == nil {
				fuelPrice = p
			}
		}

		resp := rates.BuildQuote(rates.QuoteInput{
			Route:     req.Route,
			Vehicle:   req.Vehicle,
			Load:      req.Load,
			Stored:    &stored,
			Override:  req.SettingsOverride,
			FuelPrice: fuelPrice,
			Tolls:     req.Tolls,
			Weather:   req.Weather,
		})

		saved, err := s.Store.SaveQuote(ctx, model.SavedQuote{
			CarrierID: carrier,
			Route:     req.Route,
			Rate:      resp.Rate,
			Market:    &resp.Market,
			Score:     &resp.Score,
		})
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save quote failed", err.Error(), r.URL.Path)
			return
		}
		resp.ID = saved.ID

		metrics.Quotes.WithLabelValues(string(cat), resp.Score.Rating).Inc()
		metrics.QuoteRPM.WithLabelValues(string(cat)).Observe(resp.Rate.RatePerMile)

		data := map[string]any{
			"quoteId":         saved.ID,
			"recommendedRate": resp.Rate.RecommendedRate,
			"ratePerMile":     resp.Rate.RatePerMile,
			"rating":          resp.Score.Rating,
			"position":        string(resp.Comparison.Position),
		}
		s.Pub.Emit(ctx, carrier, "quote.created", data)
		s.Broker.Publish(carrier, SSEEvent{Type: "quote.created", Data: data})

		writeJSON(w, http.StatusCreated, resp)
	case http.MethodGet:
		ctx, carrier := s.withCarrier(r)
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListQuotes(ctx, carrier, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List quotes failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// QuoteByIDHandler handles GET /v1/quotes/{id} and GET /v1/quotes/events/stream
func (s *Server) QuoteByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/quotes/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	if rest == "events/stream" {
		s.quoteEventsSSE(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, carrier := s.withCarrier(r)
	q, err := s.Store.GetQuote(ctx, carrier, rest)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Quote not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Get quote failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// quoteEventsSSE streams quote events for the caller's carrier.
func (s *Server) quoteEventsSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, carrier := s.withCarrier(r)
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ch := s.Broker.Subscribe(carrier)
	defer s.Broker.Unsubscribe(carrier, ch)
	// initial heartbeat
	fmt.Fprintf(w, "event: heartbeat\n")
	fmt.Fprintf(w, "data: {\"carrierId\":\"%s\",\"ts\":\"%s\"}\n\n", carrier, time.Now().Format(time.RFC3339))
	flusher.Flush()
	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
		case <-time.After(15 * time.Second):
			fmt.Fprintf(w, "event: heartbeat\n")
			fmt.Fprintf(w, "data: {\"carrierId\":\"%s\",\"ts\":\"%s\"}\n\n", carrier, time.Now().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

// MarketRatesHandler handles POST /v1/market-rates
func (s *Server) MarketRatesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var q struct {
		OriginState  string             `json:"originState"`
		DestState    string             `json:"destState"`
		TotalMiles   float64            `json:"totalMiles"`
		FreightClass model.FreightClass `json:"freightClass"`
		PickupMonth  int                `json:"pickupMonth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	query := rates.MarketQuery{
		OriginState:  q.OriginState,
		DestState:    q.DestState,
		TotalMiles:   q.TotalMiles,
		FreightClass: q.FreightClass,
		PickupMonth:  q.PickupMonth,
	}
	if err := validateMarketQuery(&query); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid market query", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, rates.CalculateMarketRate(query))
}

// ScoresHandler handles POST /v1/scores: stand-alone load acceptance scoring.
func (s *Server) ScoresHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		OriginState   string                `json:"originState"`
		DestState     string                `json:"destState"`
		TotalMiles    float64               `json:"totalMiles"`
		DeadheadMiles float64               `json:"deadheadMiles"`
		ProfitMargin  float64               `json:"profitMargin"`
		FreightClass  model.FreightClass    `json:"freightClass"`
		PickupMonth   int                   `json:"pickupMonth"`
		Weather       *model.WeatherContext `json:"weather,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.TotalMiles <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid score request", "totalMiles must be > 0", r.URL.Path)
		return
	}
	if req.DeadheadMiles < 0 || req.DeadheadMiles > req.TotalMiles {
		writeProblem(w, http.StatusBadRequest, "Invalid score request", "deadheadMiles must be in [0, totalMiles]", r.URL.Path)
		return
	}
	market := rates.CalculateMarketRate(rates.MarketQuery{
		OriginState:  req.OriginState,
		DestState:    req.DestState,
		TotalMiles:   req.TotalMiles,
		FreightClass: req.FreightClass,
		PickupMonth:  req.PickupMonth,
	})
	score := rates.ScoreLoad(rates.ScoreInput{
		ProfitMargin:    req.ProfitMargin,
		DestTemperature: market.Flow.Temperature,
		TotalMiles:      req.TotalMiles,
		DeadheadMiles:   req.DeadheadMiles,
		Weather:         req.Weather,
		ReturnScore:     market.ReturnPotential.Score,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"score":           score,
		"flow":            market.Flow,
		"returnPotential": market.ReturnPotential,
	})
}

// SettingsHandler handles GET/PATCH/DELETE /v1/settings/{category}
func (s *Server) SettingsHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/settings/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing category", r.URL.Path)
		return
	}
	cat := model.VehicleCategory(rest)
	if _, ok := knownCategories[cat]; !ok {
		writeProblem(w, http.StatusBadRequest, "Unknown category", fmt.Sprintf("category %q is not supported", rest), r.URL.Path)
		return
	}
	ctx, carrier := s.withCarrier(r)
	switch r.Method {
	case http.MethodGet:
		settings, err := s.Store.GetSettings(ctx, carrier, cat)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Load settings failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPatch:
		var patch model.SettingsPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		settings, err := s.Store.UpdateSettings(ctx, carrier, cat, patch)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Update settings failed", err.Error(), r.URL.Path)
			return
		}
		s.Pub.Emit(ctx, carrier, "settings.updated", map[string]any{"category": string(cat)})
		writeJSON(w, http.StatusOK, settings)
	case http.MethodDelete:
		settings, err := s.Store.ResetSettings(ctx, carrier, cat)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Reset settings failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// VehiclesHandler handles GET/POST /v1/vehicles
func (s *Server) VehiclesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, carrier := s.withCarrier(r)
	switch r.Method {
	case http.MethodGet:
		items, err := s.Store.ListVehicles(ctx, carrier)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List vehicles failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var in model.VehicleRecord
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if _, ok := knownCategories[in.Profile.Category]; !ok {
			writeProblem(w, http.StatusBadRequest, "Unknown category", fmt.Sprintf("category %q is not supported", in.Profile.Category), r.URL.Path)
			return
		}
		if in.Profile.MPG < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid vehicle", "mpg must be >= 0", r.URL.Path)
			return
		}
		v, err := s.Store.CreateVehicle(ctx, carrier, in)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create vehicle failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// VehicleByIDHandler handles GET/DELETE /v1/vehicles/{id}
func (s *Server) VehicleByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/vehicles/")
	if id == r.URL.Path || id == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	ctx, carrier := s.withCarrier(r)
	switch r.Method {
	case http.MethodGet:
		v, err := s.Store.GetVehicle(ctx, carrier, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeProblem(w, http.StatusNotFound, "Vehicle not found", "", r.URL.Path)
				return
			}
			writeProblem(w, http.StatusInternalServerError, "Get vehicle failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, v)
	case http.MethodDelete:
		if err := s.Store.DeleteVehicle(ctx, carrier, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeProblem(w, http.StatusNotFound, "Vehicle not found", "", r.URL.Path)
				return
			}
			writeProblem(w, http.StatusInternalServerError, "Delete vehicle failed", err.Error(), r.URL.Path)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.CarrierID == "" {
			req.CarrierID = p.Carrier
		}
		if err := validateSubscription(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", err.Error(), r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSubscriptions(r.Context(), p.Carrier, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/v1/subscriptions/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if err := s.Store.DeleteSubscription(r.Context(), p.Carrier, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Subscription not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WebhookDeliveriesHandler handles GET /v1/admin/webhook-deliveries
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/webhook-deliveries" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status := r.URL.Query().Get("status")
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListWebhookDeliveries(r.Context(), p.Carrier, status, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List deliveries failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Info()
	info["status"] = "ok"
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using Postgres store
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
