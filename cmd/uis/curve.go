package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"uisBacktest/internal/finance"
)

type curveCmd struct {
	offline bool
	png     string
}

func (*curveCmd) Name() string     { return "curve" }
func (*curveCmd) Synopsis() string { return "score every split of the pair over the latest window" }
func (*curveCmd) Usage() string {
	return `uis curve [-offline] [-png dir] [A B] [window=N] [factor=X] [dispersion=stddev|ulcer] [ulcer=N]

  Prints return, dispersion and ratio of the eleven splits over the most recent window and
  marks the best one.
`
}

func (c *curveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.offline, "offline", false, "use stored prices without downloading")
	f.StringVar(&c.png, "png", "", "directory to write the curve chart to")
}

func (c *curveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	rep, err := a.service(c.offline).Curve(ctx, cmd.TickerA, cmd.TickerB, cmd.Config.OptimizationWindow, cmd.Config.Metric)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(stdout, finance.FormatCurveReport(rep))

	if c.png != "" {
		img, err := finance.MakeCurveChart(rep)
		if err == nil {
			err = writePNG(c.png, rep.TickerA+"_"+rep.TickerB+"_curve.png", img)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
