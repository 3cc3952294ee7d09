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

	// SolveRequests counts solve jobs by terminal outcome
	SolveRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solve_requests_total", Help: "Solve jobs by outcome."},
		[]string{"outcome"},
	)
	// SolveDuration records end-to-end solve wall time in seconds
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "solve_duration_seconds", Help: "End-to-end solve duration in seconds.", Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}},
	)
	// SubproblemDuration records per-product search time in seconds
	SubproblemDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "subproblem_duration_seconds", Help: "Per-product search duration in seconds.", Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30}},
	)
	// SolutionCost tracks the total cost of produced solutions
	SolutionCost = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "solution_total_cost", Help: "Total cost of produced solutions.", Buckets: prometheus.ExponentialBuckets(10, 4, 10)},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SolveRequests)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(SubproblemDuration)
		Registry.MustRegister(SolutionCost)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
