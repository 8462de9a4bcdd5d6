package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"uisBacktest/internal/backtest"
	"uisBacktest/internal/finance"
)

type runCmd struct {
	workers int
	steps   int
	offline bool
	asJSON  bool
	png     string
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run a walk-forward allocation backtest" }
func (*runCmd) Usage() string {
	return `uis run [-offline] [-json] [-png dir] [-steps n] [-workers n] [A B] [window=N] [advance=N] [days=N] [factor=X] [dispersion=stddev|ulcer] [ulcer=N]

  Backtests the pair (default: the configured pair) over the last days sessions. Options not
  given keep their configured values.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.workers, "workers", 0, "folds scored in parallel (default: configured workers)")
	f.IntVar(&c.steps, "steps", 10, "recent rebalances listed in the report")
	f.BoolVar(&c.offline, "offline", false, "use stored prices without downloading")
	f.BoolVar(&c.asJSON, "json", false, "print the full result as JSON")
	f.StringVar(&c.png, "png", "", "directory to write the charts to")
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	cmd, err := finance.ParseBacktestCommand(strings.Join(f.Args(), " "), a.defaults())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.workers > 0 {
		cmd.Config.Workers = c.workers
	}

	res, err := a.service(c.offline).Backtest(ctx, finance.BacktestRequest{
		TickerA:     cmd.TickerA,
		TickerB:     cmd.TickerB,
		HistoryDays: cmd.HistoryDays,
		Config:      cmd.Config,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	} else {
		fmt.Fprint(stdout, backtest.FormatResult(res, c.steps))
		printStats(res)
	}

	if c.png != "" {
		if err := writeResultCharts(c.png, res); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

func printStats(res *backtest.Result) {
	p, sa, sb, err := finance.ResultStats(res)
	if err != nil {
		return
	}
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "%-12s %9s %9s %7s %8s\n", "", "annual", "vol", "sharpe", "maxdd")
	for _, row := range []struct {
		name string
		s    *finance.TrajectoryStats
	}{{"walk-forward", p}, {res.TickerA, sa}, {res.TickerB, sb}} {
		fmt.Fprintf(stdout, "%-12s %+8.2f%% %8.2f%% %7.2f %7.2f%%\n", row.name,
			row.s.AnnualReturn, row.s.Volatility, row.s.SharpeRatio, row.s.MaxDrawdown)
	}
}

func writeResultCharts(dir string, res *backtest.Result) error {
	name := res.TickerA + "_" + res.TickerB
	img, err := finance.MakeTrajectoryChart(res)
	if err != nil {
		return err
	}
	if err := writePNG(dir, name+"_walkforward.png", img); err != nil {
		return err
	}
	img, err = finance.MakeAllocationChart(res)
	if err != nil {
		return err
	}
	return writePNG(dir, name+"_allocation.png", img)
}
