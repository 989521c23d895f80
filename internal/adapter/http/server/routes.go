package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes - setups http routes
func setupRoutes(mux *http.ServeMux, routes *handlers) {
	// System Health
	mux.HandleFunc("GET /health", routes.health.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Ingestion
	mux.HandleFunc("POST /api/location", routes.location.Update)
	mux.HandleFunc("POST /api/location/batch", routes.location.Batch)
	mux.HandleFunc("POST /api/location/cleanup", routes.location.Cleanup)

	// Queries
	mux.HandleFunc("GET /api/location/{driver_id}", routes.location.History)
	mux.HandleFunc("GET /api/location/{driver_id}/latest", routes.location.Latest)
	mux.HandleFunc("GET /api/drivers/nearby", routes.location.Nearby)

	// Sync control
	mux.HandleFunc("POST /api/sync", routes.sync.ReplayAll)
	mux.HandleFunc("POST /api/sync/{driver_id}", routes.sync.Replay)
	mux.HandleFunc("POST /api/sync/{driver_id}/reconcile", routes.sync.Reconcile)
	mux.HandleFunc("GET /api/sync/status", routes.sync.Status)
	mux.HandleFunc("GET /api/sync/status/{driver_id}", routes.sync.StatusFor)
}
