package backtest

import (
	"context"
	"fmt"
	"time"
)

// GridSize is the number of allocation steps searched per window (0%..100% in 10% increments).
const GridSize = 11

// PricePoint is a single daily close for one ticker.
type PricePoint struct {
	Date   time.Time
	Ticker string
	Close  float64
}

// PriceWindow is a contiguous, date-ordered run of closes for one ticker.
type PriceWindow []PricePoint

// Closes returns the close prices of the window in order.
func (w PriceWindow) Closes() []float64 {
	out := make([]float64, len(w))
	for i, p := range w {
		out[i] = p.Close
	}
	return out
}

// PriceSource supplies ordered daily closes per ticker. Points are ascending in date,
// unique per date, and non-trading days are simply absent.
type PriceSource interface {
	PriceSeries(ctx context.Context, ticker string, start, end time.Time) ([]PricePoint, error)
}

// AllocationStep is a grid point 0..10; step s puts s*10% in asset A and the rest in asset B.
type AllocationStep int

// Weights returns the (A, B) weight pair of the step.
func (s AllocationStep) Weights() (float64, float64) {
	a := float64(s) / 10
	return a, 1 - a
}

// Valid reports whether the step lies on the grid.
func (s AllocationStep) Valid() bool { return s >= 0 && s < GridSize }

// String renders the split as "A%/B%".
func (s AllocationStep) String() string {
	return fmt.Sprintf("%d%%/%d%%", int(s)*10, 100-int(s)*10)
}

// PerformanceSample holds the diagnostics of one grid point within one optimization window.
type PerformanceSample struct {
	Step          AllocationStep `json:"step"`
	ReturnPercent float64        `json:"return_percent"`
	Dispersion    float64        `json:"dispersion"`
	Ratio         float64        `json:"ratio"`
}

// Curve is the full ordered grid of samples, indexed by step.
type Curve [GridSize]PerformanceSample

// Returns holds realized (last-first)/first returns over a forward window.
type Returns struct {
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	Portfolio float64 `json:"portfolio"`
}

// Baseline is the buy-and-hold return of each asset over the whole evaluated horizon.
type Baseline struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// RunningReturn is the compounded growth of one unit in A, B and the walk-forward portfolio.
type RunningReturn struct {
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	Portfolio float64 `json:"portfolio"`
}

// NewRunningReturn returns the identity accumulator.
func NewRunningReturn() RunningReturn {
	return RunningReturn{A: 1, B: 1, Portfolio: 1}
}

// Compound applies one iteration of realized returns, in the order A, B, Portfolio.
func (r RunningReturn) Compound(realized Returns) RunningReturn {
	r.A *= 1 + realized.A
	r.B *= 1 + realized.B
	r.Portfolio *= 1 + realized.Portfolio
	return r
}

// Fold is one walk-forward iteration expressed as half-open index ranges into the full series.
// The forward range starts at OptFinish-1 so consecutive forward windows share their endpoints.
type Fold struct {
	Index     int `json:"index"`
	OptStart  int `json:"opt_start"`
	OptFinish int `json:"opt_finish"`
	FwdStart  int `json:"fwd_start"`
	FwdFinish int `json:"fwd_finish"`
}

// Step is the outcome of one walk-forward iteration.
type Step struct {
	Fold     Fold           `json:"fold"`
	From     time.Time      `json:"from"`
	To       time.Time      `json:"to"`
	Until    time.Time      `json:"until"`
	Best     AllocationStep `json:"best"`
	Curve    Curve          `json:"curve"`
	Realized Returns        `json:"realized"`
	Running  RunningReturn  `json:"running"`
}

// Result is the full output of a backtest run.
type Result struct {
	TickerA  string        `json:"ticker_a"`
	TickerB  string        `json:"ticker_b"`
	Config   Config        `json:"config"`
	Steps    []Step        `json:"steps"`
	Final    RunningReturn `json:"final"`
	Baseline Baseline      `json:"baseline"`
	// Horizon is the first and last date covered by forward windows.
	HorizonStart time.Time `json:"horizon_start"`
	HorizonEnd   time.Time `json:"horizon_end"`
}

// Trajectory returns the RunningReturn after every iteration, preceded by the identity.
func (r *Result) Trajectory() []RunningReturn {
	out := make([]RunningReturn, 0, len(r.Steps)+1)
	out = append(out, NewRunningReturn())
	for _, s := range r.Steps {
		out = append(out, s.Running)
	}
	return out
}
