// Command uis downloads daily prices and runs walk-forward two-asset allocation backtests.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&fetchCmd{}, "prices")
	commander.Register(&coverageCmd{}, "prices")
	commander.Register(&runCmd{}, "backtest")
	commander.Register(&curveCmd{}, "backtest")

	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
