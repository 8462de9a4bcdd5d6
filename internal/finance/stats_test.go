package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateTrajectoryStats(t *testing.T) {
	stats, err := CalculateTrajectoryStats([]float64{1, 1.1, 0.99, 1.2}, 12)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Periods)
	assert.InDelta(t, 20.0, stats.TotalReturn, 1e-9)
	assert.InDelta(t, 10.0, stats.MaxDrawdown, 1e-9)
	assert.Greater(t, stats.AnnualReturn, stats.TotalReturn, "three months compound to more than a year's 20%")
	assert.Greater(t, stats.Volatility, 0.0)
	assert.Greater(t, stats.SharpeRatio, 0.0)
}

func TestCalculateTrajectoryStatsErrors(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"too short", []float64{1, 1.1}},
		{"zero start", []float64{0, 1, 1.1}},
		{"zero inside", []float64{1, 0, 1.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateTrajectoryStats(tt.values, 12)
			assert.Error(t, err)
		})
	}
}

func TestCalculateMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, calculateMaxDrawdown([]float64{1, 2, 3}))
	assert.InDelta(t, 0.5, calculateMaxDrawdown([]float64{1, 2, 1, 1.5}), 1e-12)
	assert.Equal(t, 0.0, calculateMaxDrawdown([]float64{1}))
}

func TestResultStats(t *testing.T) {
	res := testResult(t)
	p, a, b, err := ResultStats(res)
	require.NoError(t, err)
	assert.Equal(t, len(res.Steps), p.Periods)
	assert.InDelta(t, (res.Final.Portfolio-1)*100, p.TotalReturn, 1e-9)
	assert.InDelta(t, (res.Final.A-1)*100, a.TotalReturn, 1e-9)
	assert.InDelta(t, (res.Final.B-1)*100, b.TotalReturn, 1e-9)
}
