// Package api implements the HTTP surface of the staffing service:
// calculator and coverage endpoints, schedule run management, and the
// run event streams.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"staffplan/internal/config"
	"staffplan/internal/coverage"
	"staffplan/internal/roster"
	"staffplan/internal/store"
	"staffplan/internal/webhooks"
)

type Server struct {
	Store    store.Store
	Broker   EventBroker
	Cov      *coverage.Generator
	Sched    *roster.Scheduler
	Webhooks *webhooks.Publisher

	apiToken string
	limiter  *rate.Limiter
	log      zerolog.Logger
}

// NewServer wires the server from configuration. With no DATABASE_URL the
// in-memory store is used; with no REDIS_URL events stay in-process.
func NewServer(cfg *config.Config) (*Server, error) {
	var st store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		mem := store.NewMemory()
		if cfg.SeedDemo {
			mem.SeedDemo()
		}
		st = mem
	} else {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.MigrationsDir != "" {
			if err := pg.MigrateDir(cfg.MigrationsDir); err != nil {
				return nil, err
			}
		}
		st = pg
	}

	var broker EventBroker
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis broker unavailable, falling back to in-process events")
			broker = NewBroker()
		} else {
			broker = rb
		}
	} else {
		broker = NewBroker()
	}

	return &Server{
		Store:    st,
		Broker:   broker,
		Cov:      coverage.NewGenerator(st),
		Sched:    roster.NewScheduler(st),
		Webhooks: webhooks.NewPublisher(st, cfg.WebhookURL),
		apiToken: cfg.APIToken,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst),
		log:      log.With().Str("component", "api").Logger(),
	}, nil
}

// Publish fans a run event out to stream subscribers and, when a webhook
// endpoint is configured, to the delivery queue. The worker's Notify hook
// and the synchronous run path both land here.
func (s *Server) Publish(runID, event string, data map[string]any) {
	s.Broker.Publish(runID, SSEEvent{Type: event, Data: data})
	s.Webhooks.Emit(context.Background(), runID, event, data)
}

// Routes builds the route table. Handler wraps it with the middleware
// chain; tests can hit Routes directly to skip auth and rate limits.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Calculator
	mux.HandleFunc("POST /v1/calc", s.CalcHandler)

	// Planning reference data
	mux.HandleFunc("GET /v1/skills", s.SkillsHandler)
	mux.HandleFunc("GET /v1/staff", s.StaffHandler)
	mux.HandleFunc("GET /v1/shift-templates", s.ShiftTemplatesHandler)
	mux.HandleFunc("GET /v1/optimization-methods", s.OptimizationMethodsHandler)
	mux.HandleFunc("GET /v1/plans/{id}", s.PlanHandler)

	// Coverage requirements
	mux.HandleFunc("POST /v1/plans/{id}/coverage", s.GenerateCoverageHandler)
	mux.HandleFunc("GET /v1/plans/{id}/coverage", s.GetCoverageHandler)

	// Schedule runs
	mux.HandleFunc("POST /v1/runs", s.CreateRunHandler)
	mux.HandleFunc("GET /v1/runs/{id}", s.GetRunHandler)
	mux.HandleFunc("GET /v1/runs/{id}/shifts", s.RunShiftsHandler)
	mux.HandleFunc("GET /v1/runs/{id}/metrics", s.RunMetricsHandler)
	mux.HandleFunc("GET /v1/runs/{id}/violations", s.RunViolationsHandler)
	mux.HandleFunc("GET /v1/run-groups/{id}/comparison", s.RunComparisonHandler)

	// Run event streams
	mux.HandleFunc("GET /v1/runs/{id}/events/stream", s.RunEventsHandler)
	mux.HandleFunc("GET /v1/ws", s.WSHandler)

	// Operational endpoints
	mux.HandleFunc("GET /healthz", s.HealthHandler)
	mux.HandleFunc("GET /readyz", s.ReadyHandler)
	mux.Handle("GET /metrics", s.MetricsHandler())
	mux.HandleFunc("GET /debug/info", s.DebugJSON)

	return mux
}

// Handler is Routes wrapped with request logging, metrics, rate limiting,
// and token auth.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Routes()
	h = s.authMiddleware(h)
	h = s.rateLimitMiddleware(h)
	h = s.observeMiddleware(h)
	return h
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when backed by Postgres
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}
