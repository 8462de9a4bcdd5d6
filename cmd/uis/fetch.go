package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"uisBacktest/internal/finance"
)

type fetchCmd struct {
	days int
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "download missing daily prices into the store" }
func (*fetchCmd) Usage() string {
	return `uis fetch [-days n] [TICKER ...]

  Downloads daily prices from Yahoo for the tickers (default: the configured pair), starting
  after the last stored day of each.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 0, "trading days of history to cover (default: configured history)")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	tickers := f.Args()
	if len(tickers) == 0 {
		tickers = []string{a.cfg.Backtest.TickerA, a.cfg.Backtest.TickerB}
	}
	for i, t := range tickers {
		tickers[i] = strings.ToUpper(t)
	}
	days := c.days
	if days <= 0 {
		days = a.cfg.Backtest.HistoryDays
	}

	end := time.Now()
	results, err := a.updater().Sync(ctx, tickers, finance.LookbackStart(end, days), end)
	for _, r := range results {
		if r.UpToDate {
			fmt.Fprintf(stdout, "%-8s up to date\n", r.Ticker)
			continue
		}
		fmt.Fprintf(stdout, "%-8s %s..%s fetched %d, inserted %d, skipped %d\n", r.Ticker,
			r.From.Format(time.DateOnly), r.To.Format(time.DateOnly), r.Fetched, r.Inserted, r.Skipped)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type coverageCmd struct{}

func (*coverageCmd) Name() string     { return "coverage" }
func (*coverageCmd) Synopsis() string { return "list stored tickers and their date ranges" }
func (*coverageCmd) Usage() string {
	return `uis coverage

  Lists every ticker in the store with its first and last day and row count.
`
}

func (*coverageCmd) SetFlags(*flag.FlagSet) {}

func (*coverageCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	cov, err := a.store.Coverage(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(cov) == 0 {
		fmt.Fprintln(stdout, "store is empty, run: uis fetch")
		return subcommands.ExitSuccess
	}
	for _, c := range cov {
		fmt.Fprintf(stdout, "%-8s %s..%s %6d rows\n", c.Ticker, c.First.Format(time.DateOnly), c.Last.Format(time.DateOnly), c.Rows)
	}
	return subcommands.ExitSuccess
}
