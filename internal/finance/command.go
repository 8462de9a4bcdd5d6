package finance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"uisBacktest/internal/backtest"
)

// BacktestCommand is a parsed /backtest or /curve request.
type BacktestCommand struct {
	TickerA     string
	TickerB     string
	HistoryDays int
	Config      backtest.Config
}

var (
	commandPrefix = regexp.MustCompile(`^/\w+(?:@[\w_]+)?`)
	tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-^=]{0,14}$`)
)

// ParseBacktestCommand parses
//
//	/backtest [A B] [window=N] [advance=N] [factor=X] [dispersion=stddev|ulcer] [ulcer=N] [days=N]
//
// Anything not given keeps its value from defaults.
func ParseBacktestCommand(input string, defaults BacktestCommand) (BacktestCommand, error) {
	cmd := defaults
	input = strings.TrimSpace(commandPrefix.ReplaceAllString(strings.TrimSpace(input), ""))

	var tickers []string
	for _, part := range strings.Fields(input) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			symbol := strings.ToUpper(part)
			if !tickerPattern.MatchString(symbol) {
				return cmd, fmt.Errorf("invalid ticker %q", part)
			}
			tickers = append(tickers, symbol)
			continue
		}
		if err := cmd.set(strings.ToLower(key), value); err != nil {
			return cmd, err
		}
	}

	switch len(tickers) {
	case 0:
	case 2:
		cmd.TickerA, cmd.TickerB = tickers[0], tickers[1]
	default:
		return cmd, fmt.Errorf("need exactly two tickers, got %d", len(tickers))
	}
	if cmd.TickerA == cmd.TickerB {
		return cmd, fmt.Errorf("tickers must differ: %s", cmd.TickerA)
	}
	if err := cmd.Config.Validate(); err != nil {
		return cmd, err
	}
	if cmd.HistoryDays < cmd.Config.OptimizationWindow+cmd.Config.AdvanceStep {
		return cmd, fmt.Errorf("days=%d leaves no forward window after a %d day window", cmd.HistoryDays, cmd.Config.OptimizationWindow)
	}
	return cmd, nil
}

func (c *BacktestCommand) set(key, value string) error {
	intValue := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		return n, nil
	}
	var err error
	switch key {
	case "window":
		c.Config.OptimizationWindow, err = intValue()
	case "advance":
		c.Config.AdvanceStep, err = intValue()
	case "days":
		c.HistoryDays, err = intValue()
	case "ulcer":
		c.Config.Metric.UlcerWindow, err = intValue()
	case "factor":
		c.Config.Metric.VolatilityFactor, err = strconv.ParseFloat(value, 64)
		if err != nil {
			err = fmt.Errorf("invalid factor %q: %w", value, err)
		}
	case "dispersion":
		c.Config.Metric.Dispersion = backtest.DispersionKind(strings.ToLower(value))
	default:
		err = fmt.Errorf("unknown option %q", key)
	}
	return err
}
