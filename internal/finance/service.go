package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"uisBacktest/internal/backtest"
	"uisBacktest/internal/metrics"
)

// Service ties the price cache, the downloader and the backtest engine together for the bot
// and the CLI.
type Service struct {
	// Updater refreshes the store before a run; nil runs on stored prices only.
	Updater *Updater
	Prices  backtest.PriceSource
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
	Now     func() time.Time
}

type BacktestRequest struct {
	TickerA     string
	TickerB     string
	HistoryDays int
	Config      backtest.Config
}

// CurveReport is a single optimization over the most recent window, with each asset's
// stand-alone score for comparison.
type CurveReport struct {
	TickerA    string
	TickerB    string
	From       time.Time
	To         time.Time
	Metric     backtest.MetricConfig
	Allocation backtest.Allocation
	AloneA     backtest.PerformanceSample
	AloneB     backtest.PerformanceSample
}

// FormatCurveReport renders the latest-window table with both assets' stand-alone scores.
func FormatCurveReport(rep *CurveReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s/%s %s → %s\n", rep.TickerA, rep.TickerB,
		rep.From.Format(time.DateOnly), rep.To.Format(time.DateOnly))
	sb.WriteString(backtest.FormatCurve(rep.Allocation))
	fmt.Fprintf(&sb, "%s alone: %+.2f%%, ratio %.4f\n", rep.TickerA, rep.AloneA.ReturnPercent*100, rep.AloneA.Ratio)
	fmt.Fprintf(&sb, "%s alone: %+.2f%%, ratio %.4f\n", rep.TickerB, rep.AloneB.ReturnPercent*100, rep.AloneB.Ratio)
	fmt.Fprintf(&sb, "Best split: %s", rep.Allocation.Best)
	return sb.String()
}

func (s *Service) today() time.Time {
	if s.Now != nil {
		return dayOf(s.Now().In(getEasternTime()))
	}
	return dayOf(time.Now().In(getEasternTime()))
}

// loadPair syncs when configured, then returns the last days shared by both tickers.
func (s *Service) loadPair(ctx context.Context, tickerA, tickerB string, days int) ([]backtest.PricePoint, []backtest.PricePoint, error) {
	end := s.today()
	// holidays make the calendar estimate run short, so over-fetch and trim afterwards
	start := LookbackStart(end, days).AddDate(0, 0, -2*extraDays)
	if s.Updater != nil {
		if _, err := s.Updater.Sync(ctx, []string{tickerA, tickerB}, start, end); err != nil {
			return nil, nil, fmt.Errorf("sync prices: %w", err)
		}
	}

	a, err := s.Prices.PriceSeries(ctx, tickerA, start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", tickerA, err)
	}
	b, err := s.Prices.PriceSeries(ctx, tickerB, start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", tickerB, err)
	}
	a, b, dropped := AlignByDate(a, b)
	if len(dropped) > 0 {
		s.Logger.Warn().
			Str("a", tickerA).
			Str("b", tickerB).
			Int("dropped", len(dropped)).
			Str("first", dropped[0].Format(time.DateOnly)).
			Msg("dates missing from one ticker were dropped")
	}
	a, b = Trim(a, b, days)
	return a, b, nil
}

// Backtest runs the walk-forward backtest for the pair over the last HistoryDays sessions.
func (s *Service) Backtest(ctx context.Context, req BacktestRequest) (res *backtest.Result, err error) {
	started := time.Now()
	defer func() { s.Metrics.ObserveBacktest(res, err, time.Since(started)) }()

	a, b, err := s.loadPair(ctx, req.TickerA, req.TickerB, req.HistoryDays)
	if err != nil {
		return nil, err
	}
	if len(a) == 0 {
		return nil, fmt.Errorf("no shared history for %s and %s: %w", req.TickerA, req.TickerB, backtest.ErrInsufficientData)
	}
	src := pairSource{req.TickerA: a, req.TickerB: b}
	return backtest.RunBacktest(ctx, src, backtest.Request{
		TickerA: req.TickerA,
		TickerB: req.TickerB,
		Start:   a[0].Date,
		End:     a[len(a)-1].Date,
		Config:  req.Config,
	}, s.Logger)
}

// Curve optimizes the split over the most recent window sessions.
func (s *Service) Curve(ctx context.Context, tickerA, tickerB string, window int, cfg backtest.MetricConfig) (*CurveReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a, b, err := s.loadPair(ctx, tickerA, tickerB, window)
	if err != nil {
		return nil, err
	}
	if len(a) < window {
		return nil, fmt.Errorf("%d shared days for a %d day window: %w", len(a), window, backtest.ErrInsufficientData)
	}

	alloc, err := backtest.Optimize(a, b, cfg)
	if err != nil {
		return nil, fmt.Errorf("optimize %s/%s: %w", tickerA, tickerB, err)
	}
	rep := &CurveReport{
		TickerA:    tickerA,
		TickerB:    tickerB,
		From:       a[0].Date,
		To:         a[len(a)-1].Date,
		Metric:     cfg,
		Allocation: alloc,
	}
	if rep.AloneA, err = backtest.Metric(backtest.PriceWindow(a).Closes(), cfg); err != nil {
		return nil, fmt.Errorf("%s alone: %w", tickerA, err)
	}
	if rep.AloneB, err = backtest.Metric(backtest.PriceWindow(b).Closes(), cfg); err != nil {
		return nil, fmt.Errorf("%s alone: %w", tickerB, err)
	}
	return rep, nil
}

// pairSource serves an already aligned pair.
type pairSource map[string][]backtest.PricePoint

func (p pairSource) PriceSeries(_ context.Context, ticker string, start, end time.Time) ([]backtest.PricePoint, error) {
	series, ok := p[ticker]
	if !ok {
		return nil, fmt.Errorf("ticker %s not loaded", ticker)
	}
	var out []backtest.PricePoint
	for _, pt := range series {
		if pt.Date.Before(start) || pt.Date.After(end) {
			continue
		}
		out = append(out, pt)
	}
	return out, nil
}
