package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ratedesk/internal/api"
	"ratedesk/internal/metrics"
	"ratedesk/internal/rates"
)

func main() {
	if path := os.Getenv("BENCHMARKS_FILE"); path != "" {
		n, err := rates.LoadLaneBenchmarks(path)
		if err != nil {
			log.Fatalf("failed to load lane benchmarks: %v", err)
		}
		log.Printf("loaded %d lane benchmark overrides from %s", n, path)
	}

	srvDeps, err := api.NewServer()
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	// Quotes
	mux.HandleFunc("/v1/quotes", srvDeps.QuotesHandler)
	mux.HandleFunc("/v1/quotes/", srvDeps.QuoteByIDHandler) // includes /events/stream
	mux.HandleFunc("/v1/quotes/ws", srvDeps.QuoteEventsWSHandler)

	// Market intelligence and scoring
	mux.HandleFunc("/v1/market-rates", srvDeps.MarketRatesHandler)
	mux.HandleFunc("/v1/scores", srvDeps.ScoresHandler)

	// Carrier settings and fleet
	mux.HandleFunc("/v1/settings/", srvDeps.SettingsHandler)
	mux.HandleFunc("/v1/vehicles", srvDeps.VehiclesHandler)
	mux.HandleFunc("/v1/vehicles/", srvDeps.VehicleByIDHandler)

	// Webhook subscriptions
	mux.HandleFunc("/v1/subscriptions", srvDeps.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", srvDeps.SubscriptionByIDHandler)

	// Admin
	mux.HandleFunc("/v1/admin/webhook-deliveries", srvDeps.WebhookDeliveriesHandler)

	// Health
	mux.HandleFunc("/healthz", srvDeps.HealthHandler)
	mux.HandleFunc("/readyz", srvDeps.ReadyHandler)

	// Metrics
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	handler := logMiddleware(api.MetricsMiddleware(api.RateLimitMiddleware(mux)))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API listening on %s", addr)
	if srvDeps.Pub != nil {
		worker := srvDeps.NewWebhookWorker()
		worker.Start()
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		dur := time.Since(start)
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
	})
}
