package backtest

import (
	"fmt"
	"time"
)

// Allocation is the optimizer's decision for one window.
type Allocation struct {
	Best  AllocationStep
	Curve Curve
}

// Optimize grid-searches the blend of A and B over one window and returns the step with the
// strictly greatest metric, lowest step first on ties, together with the whole curve.
func Optimize(a, b PriceWindow, cfg MetricConfig) (Allocation, error) {
	normA, normB, err := joinNormalized(a, b)
	if err != nil {
		return Allocation{}, err
	}

	var curve Curve
	for step := AllocationStep(0); step < GridSize; step++ {
		sample, err := Metric(Blend(normA, normB, step), cfg)
		if err != nil {
			return Allocation{}, fmt.Errorf("step %d: %w", step, err)
		}
		sample.Step = step
		curve[step] = sample
	}
	return Allocation{Best: BestStep(curve), Curve: curve}, nil
}

// BestStep scans the curve upward from step 0 and keeps the first strictly greater ratio.
func BestStep(curve Curve) AllocationStep {
	best := AllocationStep(0)
	for step := AllocationStep(1); step < GridSize; step++ {
		if curve[best].Ratio < curve[step].Ratio {
			best = step
		}
	}
	return best
}

// Blend combines two normalized, date-aligned series at the weights of step.
func Blend(normA, normB []float64, step AllocationStep) []float64 {
	wa, wb := step.Weights()
	out := make([]float64, len(normA))
	for i := range normA {
		out[i] = normA[i]*wa + normB[i]*wb
	}
	return out
}

// joinNormalized checks both windows are long enough and share exactly the same dates, then
// normalizes them.
func joinNormalized(a, b PriceWindow) ([]float64, []float64, error) {
	if len(a) < 2 || len(b) < 2 {
		return nil, nil, fmt.Errorf("windows of %d and %d points: %w", len(a), len(b), ErrInsufficientData)
	}
	if err := checkAligned(a, b); err != nil {
		return nil, nil, err
	}
	normA, err := Normalize(a.Closes())
	if err != nil {
		return nil, nil, err
	}
	normB, err := Normalize(b.Closes())
	if err != nil {
		return nil, nil, err
	}
	return normA, normB, nil
}

// checkAligned is the explicit date join: every row must carry the same date in both windows.
func checkAligned(a, b PriceWindow) error {
	if len(a) != len(b) {
		return fmt.Errorf("%d vs %d points: %w", len(a), len(b), ErrMisalignedWindows)
	}
	for i := range a {
		if !sameDay(a[i].Date, b[i].Date) {
			return fmt.Errorf("row %d: %s vs %s: %w", i,
				a[i].Date.Format(time.DateOnly), b[i].Date.Format(time.DateOnly), ErrMisalignedWindows)
		}
	}
	return nil
}

func sameDay(x, y time.Time) bool {
	xy, xm, xd := x.Date()
	yy, ym, yd := y.Date()
	return xy == yy && xm == ym && xd == yd
}
