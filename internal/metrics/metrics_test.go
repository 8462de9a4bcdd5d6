package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uisBacktest/internal/backtest"
)

func TestObserveBacktest(t *testing.T) {
	m := New()
	m.ObserveBacktest(&backtest.Result{Steps: make([]backtest.Step, 12)}, nil, 40*time.Millisecond)
	m.ObserveBacktest(nil, errors.New("boom"), time.Millisecond)
	m.ObserveBacktest(nil, errors.New("boom"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.backtestRuns.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.backtestRuns.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.backtestIterations))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.YahooRequest("ok")
		m.ObserveBacktest(nil, errors.New("x"), time.Second)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.YahooRequest("throttled")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `uis_yahoo_requests_total{status="throttled"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
