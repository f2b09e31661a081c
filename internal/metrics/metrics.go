package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// RunsTotal counts finished schedule runs by terminal status
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "schedule_runs_total", Help: "Schedule runs by terminal status."},
		[]string{"status"},
	)
	// RunDuration tracks end-to-end schedule run durations in seconds
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "schedule_run_duration_seconds", Help: "Schedule run duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60}},
	)
	// CoverageRuns counts coverage generations
	CoverageRuns = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "coverage_generations_total", Help: "Coverage requirement generations."},
	)
	// CoverageRows counts coverage requirement rows written
	CoverageRows = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "coverage_requirements_written_total", Help: "Coverage requirement rows written."},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(RunsTotal)
		Registry.MustRegister(RunDuration)
		Registry.MustRegister(CoverageRuns)
		Registry.MustRegister(CoverageRows)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
