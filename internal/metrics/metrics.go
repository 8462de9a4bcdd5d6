package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"uisBacktest/internal/backtest"
)

// Metrics holds the process collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	backtestRuns       *prometheus.CounterVec
	backtestDuration   prometheus.Histogram
	backtestIterations prometheus.Histogram
	yahooRequests      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		backtestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uis_backtest_runs_total",
			Help: "Walk-forward backtests by outcome.",
		}, []string{"status"}),
		backtestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uis_backtest_duration_seconds",
			Help:    "Wall time of a backtest run including price loading.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		backtestIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uis_backtest_iterations",
			Help:    "Walk-forward iterations per successful run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		yahooRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uis_yahoo_requests_total",
			Help: "Yahoo chart requests by result.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.backtestRuns,
		m.backtestDuration,
		m.backtestIterations,
		m.yahooRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBacktest records one finished run.
func (m *Metrics) ObserveBacktest(res *backtest.Result, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.backtestDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.backtestRuns.WithLabelValues("error").Inc()
		return
	}
	m.backtestRuns.WithLabelValues("ok").Inc()
	m.backtestIterations.Observe(float64(len(res.Steps)))
}

// YahooRequest counts one upstream request; status is "ok", "throttled", "retry" or "error".
func (m *Metrics) YahooRequest(status string) {
	if m == nil {
		return
	}
	m.yahooRequests.WithLabelValues(status).Inc()
}
