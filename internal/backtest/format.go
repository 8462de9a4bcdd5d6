package backtest

import (
	"fmt"
	"strings"
	"time"
)

// FormatResult renders a plain-text report of a run: the summary against buy-and-hold and,
// when steps > 0, the last steps iterations.
func FormatResult(res *Result, steps int) string {
	var sb strings.Builder
	cfg := res.Config

	fmt.Fprintf(&sb, "Walk-forward %s/%s\n", res.TickerA, res.TickerB)
	fmt.Fprintf(&sb, "Window %dd • Advance %dd • %s^%g",
		cfg.OptimizationWindow, cfg.AdvanceStep, cfg.Metric.Dispersion, cfg.Metric.VolatilityFactor)
	if cfg.Metric.Dispersion == DispersionUlcer {
		fmt.Fprintf(&sb, " (w=%d)", cfg.Metric.UlcerWindow)
	}
	sb.WriteString("\n")

	if len(res.Steps) == 0 {
		sb.WriteString("Not enough history for a single forward window.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "Horizon %s → %s, %d rebalances\n\n",
		res.HorizonStart.Format(time.DateOnly), res.HorizonEnd.Format(time.DateOnly), len(res.Steps))
	fmt.Fprintf(&sb, "Portfolio: %+.2f%%\n", (res.Final.Portfolio-1)*100)
	fmt.Fprintf(&sb, "%s hold: %+.2f%% (compounded %+.2f%%)\n", res.TickerA, res.Baseline.A*100, (res.Final.A-1)*100)
	fmt.Fprintf(&sb, "%s hold: %+.2f%% (compounded %+.2f%%)\n", res.TickerB, res.Baseline.B*100, (res.Final.B-1)*100)

	last := res.Steps[len(res.Steps)-1]
	fmt.Fprintf(&sb, "Current split %s/%s: %s\n", res.TickerA, res.TickerB, last.Best)

	if steps <= 0 {
		return sb.String()
	}
	from := max(0, len(res.Steps)-steps)
	sb.WriteString("\nRecent rebalances:\n")
	for _, s := range res.Steps[from:] {
		fmt.Fprintf(&sb, "%s..%s  %-7s  %+6.2f%%  → %.4f\n",
			s.From.Format(time.DateOnly), s.To.Format(time.DateOnly), s.Best,
			s.Realized.Portfolio*100, s.Running.Portfolio)
	}
	return sb.String()
}

// FormatCurve renders one optimization curve as a table, marking the chosen step.
func FormatCurve(alloc Allocation) string {
	var sb strings.Builder
	sb.WriteString("split     return   disp      ratio\n")
	for _, s := range alloc.Curve {
		mark := " "
		if s.Step == alloc.Best {
			mark = "*"
		}
		fmt.Fprintf(&sb, "%s%-8s %+7.2f%%  %.5f  %9.4f\n", mark, s.Step, s.ReturnPercent*100, s.Dispersion, s.Ratio)
	}
	return sb.String()
}
