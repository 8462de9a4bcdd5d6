package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config is the explicit parameter set of one walk-forward run.
type Config struct {
	OptimizationWindow int          `json:"optimization_window" yaml:"optimization_window"`
	AdvanceStep        int          `json:"advance_step" yaml:"advance_step"`
	Metric             MetricConfig `json:"metric" yaml:"metric"`
	// Workers > 1 scores windows concurrently; compounding is still sequential.
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultConfig is a 50 trading day look-back rebalanced roughly monthly.
func DefaultConfig() Config {
	return Config{
		OptimizationWindow: 50,
		AdvanceStep:        21,
		Metric:             DefaultMetricConfig(),
		Workers:            1,
	}
}

// Validate checks the run parameters.
func (c Config) Validate() error {
	if c.OptimizationWindow < 2 {
		return fmt.Errorf("optimization window must be at least 2 trading days, got %d", c.OptimizationWindow)
	}
	if c.AdvanceStep < 1 {
		return fmt.Errorf("advance step must be at least 1 trading day, got %d", c.AdvanceStep)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return c.Metric.Validate()
}

// PlanFolds lays out every complete walk-forward iteration over n aligned trading days.
// The forward range [OptFinish-1, OptFinish+advance) holds advance+1 prices, which is advance
// daily returns measured from the last optimization day. Consecutive forward ranges share an
// endpoint, so compounding them reproduces buy-and-hold over the horizon.
// Planning stops at the first fold whose forward range would run past the last day.
func PlanFolds(n, window, advance int) []Fold {
	if window < 1 || advance < 1 {
		return nil
	}
	var folds []Fold
	for start, finish := 0, window; finish <= n; start, finish = start+advance, finish+advance {
		fwdStart := finish - 1
		fwdFinish := finish + advance
		if fwdFinish > n {
			break
		}
		folds = append(folds, Fold{
			Index:     len(folds),
			OptStart:  start,
			OptFinish: finish,
			FwdStart:  fwdStart,
			FwdFinish: fwdFinish,
		})
	}
	return folds
}

// slice returns w[lo:hi] clamped to the window; a range starting past the end is empty.
func slice(w PriceWindow, lo, hi int) PriceWindow {
	if lo >= len(w) || lo >= hi {
		return nil
	}
	return w[max(lo, 0):min(hi, len(w))]
}

// BuyAndHold is the return of holding each asset over the whole pair of windows.
func BuyAndHold(a, b PriceWindow) (Baseline, error) {
	if len(a) == 0 && len(b) == 0 {
		return Baseline{}, nil
	}
	r, err := EvaluateForward(GridSize-1, a, b)
	if err != nil {
		return Baseline{}, err
	}
	return Baseline{A: r.A, B: r.B}, nil
}

// Runner walks a pair of price series forward with a fixed configuration.
type Runner struct {
	cfg    Config
	logger zerolog.Logger
}

// NewRunner validates cfg and returns a runner logging through logger.
func NewRunner(cfg Config, logger zerolog.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, logger: logger}, nil
}

type foldOutcome struct {
	alloc    Allocation
	realized Returns
}

// Run executes the walk-forward backtest on two date-aligned series.
func (r *Runner) Run(ctx context.Context, a, b []PricePoint) (*Result, error) {
	wa, wb := PriceWindow(a), PriceWindow(b)
	if err := checkAscending(wa); err != nil {
		return nil, err
	}
	if err := checkAscending(wb); err != nil {
		return nil, err
	}
	if len(wa) != len(wb) {
		return nil, fmt.Errorf("series of %d and %d trading days: %w", len(wa), len(wb), ErrMisalignedWindows)
	}

	n := len(wa)
	// too short for even one optimization window is an error, not an empty run
	if n < r.cfg.OptimizationWindow {
		return nil, fmt.Errorf("%d trading days for a %d day window: %w", n, r.cfg.OptimizationWindow, ErrInsufficientData)
	}
	folds := PlanFolds(n, r.cfg.OptimizationWindow, r.cfg.AdvanceStep)

	res := &Result{Config: r.cfg}
	if len(wa) > 0 {
		res.TickerA, res.TickerB = wa[0].Ticker, wb[0].Ticker
	}

	// Baseline first, over exactly the horizon the folds will cover.
	if len(folds) > 0 {
		lo, hi := folds[0].FwdStart, folds[len(folds)-1].FwdFinish
		base, err := BuyAndHold(wa[lo:hi], wb[lo:hi])
		if err != nil {
			return nil, fmt.Errorf("baseline [%d,%d) %s..%s: %w", lo, hi,
				wa[lo].Date.Format(time.DateOnly), wa[hi-1].Date.Format(time.DateOnly), err)
		}
		res.Baseline = base
		res.HorizonStart, res.HorizonEnd = wa[lo].Date, wa[hi-1].Date
	}

	r.logger.Info().
		Str("a", res.TickerA).
		Str("b", res.TickerB).
		Int("days", n).
		Int("window", r.cfg.OptimizationWindow).
		Int("advance", r.cfg.AdvanceStep).
		Int("iterations", len(folds)).
		Str("dispersion", string(r.cfg.Metric.Dispersion)).
		Float64("factor", r.cfg.Metric.VolatilityFactor).
		Msg("backtest started")
	if tail := n - foldsEnd(folds, r.cfg.OptimizationWindow); tail > 0 {
		r.logger.Debug().Int("days", tail).Msg("partial tail window discarded")
	}

	outcomes, err := r.scoreFolds(ctx, wa, wb, folds)
	if err != nil {
		return nil, err
	}

	running := NewRunningReturn()
	res.Steps = make([]Step, 0, len(folds))
	for i, f := range folds {
		o := outcomes[i]
		running = running.Compound(o.realized)
		res.Steps = append(res.Steps, Step{
			Fold:     f,
			From:     wa[f.OptStart].Date,
			To:       wa[f.OptFinish-1].Date,
			Until:    wa[f.FwdFinish-1].Date,
			Best:     o.alloc.Best,
			Curve:    o.alloc.Curve,
			Realized: o.realized,
			Running:  running,
		})
		r.logger.Debug().
			Int("iteration", f.Index).
			Str("from", wa[f.OptStart].Date.Format(time.DateOnly)).
			Str("to", wa[f.OptFinish-1].Date.Format(time.DateOnly)).
			Stringer("split", o.alloc.Best).
			Float64("ret_a", o.realized.A).
			Float64("ret_b", o.realized.B).
			Float64("ret_portfolio", o.realized.Portfolio).
			Float64("running_portfolio", running.Portfolio).
			Msg("iteration")
	}
	res.Final = running

	r.logger.Info().
		Int("iterations", len(res.Steps)).
		Float64("final_a", running.A).
		Float64("final_b", running.B).
		Float64("final_portfolio", running.Portfolio).
		Msg("backtest finished")
	return res, nil
}

// scoreFolds optimizes and evaluates every fold. Folds are independent, so with more than one
// worker they are scored concurrently; the lowest failing fold is reported either way.
func (r *Runner) scoreFolds(ctx context.Context, a, b PriceWindow, folds []Fold) ([]foldOutcome, error) {
	outcomes := make([]foldOutcome, len(folds))
	errs := make([]error, len(folds))

	if r.cfg.Workers <= 1 {
		for i, f := range folds {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[i], errs[i] = r.scoreFold(a, b, f)
			if errs[i] != nil {
				return nil, errs[i]
			}
		}
		return outcomes, nil
	}

	// Every fold runs to completion so the reported fault does not depend on scheduling.
	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i, f := range folds {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i], errs[i] = r.scoreFold(a, b, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return outcomes, nil
}

func (r *Runner) scoreFold(a, b PriceWindow, f Fold) (foldOutcome, error) {
	alloc, err := Optimize(slice(a, f.OptStart, f.OptFinish), slice(b, f.OptStart, f.OptFinish), r.cfg.Metric)
	if err != nil {
		return foldOutcome{}, foldError(a, f, f.OptStart, f.OptFinish, fmt.Errorf("optimize: %w", err))
	}
	realized, err := EvaluateForward(alloc.Best, slice(a, f.FwdStart, f.FwdFinish), slice(b, f.FwdStart, f.FwdFinish))
	if err != nil {
		return foldOutcome{}, foldError(a, f, f.FwdStart, f.FwdFinish, fmt.Errorf("evaluate forward: %w", err))
	}
	return foldOutcome{alloc: alloc, realized: realized}, nil
}

func foldError(a PriceWindow, f Fold, lo, hi int, err error) *WindowError {
	we := &WindowError{Fold: f, Err: err}
	if w := slice(a, lo, hi); len(w) > 0 {
		we.StartDate, we.EndDate = w[0].Date, w[len(w)-1].Date
	}
	return we
}

// foldsEnd is the index one past the last day any fold touches.
func foldsEnd(folds []Fold, window int) int {
	if len(folds) == 0 {
		return window
	}
	return folds[len(folds)-1].FwdFinish
}

func checkAscending(w PriceWindow) error {
	for i := 1; i < len(w); i++ {
		if !w[i].Date.After(w[i-1].Date) {
			return fmt.Errorf("%s: dates not strictly ascending at row %d (%s after %s)", w[i].Ticker, i,
				w[i].Date.Format(time.DateOnly), w[i-1].Date.Format(time.DateOnly))
		}
	}
	return nil
}

// Request names the pair and the date range to backtest.
type Request struct {
	TickerA string
	TickerB string
	Start   time.Time
	End     time.Time
	Config  Config
}

// RunBacktest loads both series from src and runs the walk-forward backtest on them.
func RunBacktest(ctx context.Context, src PriceSource, req Request, logger zerolog.Logger) (*Result, error) {
	runner, err := NewRunner(req.Config, logger)
	if err != nil {
		return nil, err
	}
	a, err := src.PriceSeries(ctx, req.TickerA, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", req.TickerA, err)
	}
	b, err := src.PriceSeries(ctx, req.TickerB, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", req.TickerB, err)
	}
	res, err := runner.Run(ctx, a, b)
	if err != nil {
		return nil, fmt.Errorf("backtest %s/%s: %w", req.TickerA, req.TickerB, err)
	}
	res.TickerA, res.TickerB = req.TickerA, req.TickerB
	return res, nil
}
