package backtest

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// DispersionKind selects the risk measure in the denominator of the metric.
type DispersionKind string

const (
	// DispersionStdDev is the sample standard deviation of the normalized series.
	DispersionStdDev DispersionKind = "stddev"
	// DispersionUlcer is the Ulcer Index of the normalized series.
	DispersionUlcer DispersionKind = "ulcer"
)

// DefaultUlcerWindow is the trailing look-back of the rolling maximum.
const DefaultUlcerWindow = 14

// MetricConfig parameterizes the risk-adjusted ratio.
type MetricConfig struct {
	Dispersion       DispersionKind `json:"dispersion" yaml:"dispersion"`
	VolatilityFactor float64        `json:"volatility_factor" yaml:"volatility_factor"`
	UlcerWindow      int            `json:"ulcer_window" yaml:"ulcer_window"`
}

// DefaultMetricConfig mirrors the historical setting: standard deviation squared.
func DefaultMetricConfig() MetricConfig {
	return MetricConfig{
		Dispersion:       DispersionStdDev,
		VolatilityFactor: 2,
		UlcerWindow:      DefaultUlcerWindow,
	}
}

// Validate checks the metric parameters.
func (c MetricConfig) Validate() error {
	switch c.Dispersion {
	case DispersionStdDev:
	case DispersionUlcer:
		if c.UlcerWindow < 1 {
			return fmt.Errorf("ulcer window must be at least 1, got %d", c.UlcerWindow)
		}
	default:
		return fmt.Errorf("unknown dispersion kind %q", c.Dispersion)
	}
	if !(c.VolatilityFactor > 0) || math.IsInf(c.VolatilityFactor, 0) {
		return fmt.Errorf("volatility factor must be positive, got %v", c.VolatilityFactor)
	}
	return nil
}

// Normalize divides the series by its first value. The first element is exactly 1.
func Normalize(series []float64) ([]float64, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("normalize empty series: %w", ErrInsufficientData)
	}
	first := series[0]
	if !(first > 0) || math.IsInf(first, 0) {
		return nil, fmt.Errorf("normalize by first value %v: %w", first, ErrUndefinedMetric)
	}
	out := make([]float64, len(series))
	out[0] = 1
	for i := 1; i < len(series); i++ {
		out[i] = series[i] / first
	}
	return out, nil
}

// ReturnPercent is (last-first)/first as a decimal fraction. An empty series returns 0.
func ReturnPercent(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	first, last := series[0], series[len(series)-1]
	return (last - first) / first
}

// UlcerIndex is the root-mean-square of the percentage retracements of each point from the
// maximum of the trailing window of points ending at it.
func UlcerIndex(series []float64, window int) (float64, error) {
	if len(series) < 2 {
		return 0, fmt.Errorf("ulcer index over %d points: %w", len(series), ErrInsufficientData)
	}
	if window < 1 {
		return 0, fmt.Errorf("ulcer window %d", window)
	}
	var sum float64
	for i := range series {
		lo := max(0, i-window+1)
		peak := slices.Max(series[lo : i+1])
		dd := 100 * (series[i] - peak) / peak
		sum += dd * dd
	}
	return math.Sqrt(sum / float64(len(series))), nil
}

// Dispersion computes the configured risk measure of a series after normalizing it.
func Dispersion(series []float64, cfg MetricConfig) (float64, error) {
	if len(series) < 2 {
		return 0, fmt.Errorf("dispersion over %d points: %w", len(series), ErrInsufficientData)
	}
	norm, err := Normalize(series)
	if err != nil {
		return 0, err
	}
	switch cfg.Dispersion {
	case DispersionStdDev:
		return stat.StdDev(norm, nil), nil
	case DispersionUlcer:
		return UlcerIndex(norm, cfg.UlcerWindow)
	default:
		return 0, fmt.Errorf("unknown dispersion kind %q", cfg.Dispersion)
	}
}

// Metric scores a price series (raw or normalized) as return / dispersion^factor.
// The returned sample has step 0; callers set it.
func Metric(series []float64, cfg MetricConfig) (PerformanceSample, error) {
	if len(series) < 2 {
		return PerformanceSample{}, fmt.Errorf("metric over %d points: %w", len(series), ErrInsufficientData)
	}
	disp, err := Dispersion(series, cfg)
	if err != nil {
		return PerformanceSample{}, err
	}
	ret := ReturnPercent(series)
	if disp == 0 || math.IsNaN(disp) {
		return PerformanceSample{}, fmt.Errorf("dispersion is %v: %w", disp, ErrUndefinedMetric)
	}
	ratio := ret / math.Pow(disp, cfg.VolatilityFactor)
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return PerformanceSample{}, fmt.Errorf("ratio %v / %v^%v: %w", ret, disp, cfg.VolatilityFactor, ErrUndefinedMetric)
	}
	return PerformanceSample{
		ReturnPercent: ret,
		Dispersion:    disp,
		Ratio:         ratio,
	}, nil
}
