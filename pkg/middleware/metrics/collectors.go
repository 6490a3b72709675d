package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "turbo_response_time",
			Help:    "http response time.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	totalHttpRequestsToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "turbo_http_requests_to_uri_total", Help: "http requests by code, uri and method"},
		[]string{"code", "uri", "method"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "turbo_http_requests_total", Help: "http requests by code and method"},
		[]string{"code", "method"},
	)

	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "turbo_dispatch_total", Help: "handler dispatches by mode and outcome"},
		[]string{"mode", "outcome"},
	)

	schedulerTasks = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: "turbo_scheduler_tasks", Help: "async tasks in flight on the cooperative scheduler"},
		func() float64 {
			fn := inflightFn.Load()
			if fn == nil {
				return 0
			}
			return float64((*fn)())
		},
	)
)

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequestsToUri,
		totalHttpRequests,
		dispatchTotal,
		schedulerTasks,
	)
}

// CountDispatch records one handler dispatch. mode is "sync" or "async";
// outcome is the taxonomy name ("completed", "failed", "timed_out", ...).
func CountDispatch(mode, outcome string) {
	dispatchTotal.WithLabelValues(mode, outcome).Inc()
}
