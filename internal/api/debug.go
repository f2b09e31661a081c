package api

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"staffplan/internal/buildinfo"
	"staffplan/internal/metrics"
)

// MetricsHandler exposes the service's dedicated Prometheus registry.
func (s *Server) MetricsHandler() http.Handler {
	metrics.RegisterDefault()
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}

// DebugJSON reports build and effective configuration facts without
// leaking secrets.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":             os.Getenv("PORT"),
			"RATE_RPS":         os.Getenv("RATE_RPS"),
			"RATE_BURST":       os.Getenv("RATE_BURST"),
			"HAS_DATABASE_URL": os.Getenv("DATABASE_URL") != "",
			"HAS_REDIS_URL":    os.Getenv("REDIS_URL") != "",
			"HAS_API_TOKEN":    s.apiToken != "",
		},
	})
}
