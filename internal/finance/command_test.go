package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uisBacktest/internal/backtest"
)

func defaultCommand() BacktestCommand {
	return BacktestCommand{TickerA: "SPY", TickerB: "TLT", HistoryDays: 1260, Config: backtest.DefaultConfig()}
}

func TestParseBacktestCommand(t *testing.T) {
	cmd, err := ParseBacktestCommand("/backtest", defaultCommand())
	require.NoError(t, err)
	assert.Equal(t, defaultCommand(), cmd)

	cmd, err = ParseBacktestCommand("/backtest@uis_bot gld qqq window=60 advance=10 factor=1.5 dispersion=ULCER ulcer=20 days=500", defaultCommand())
	require.NoError(t, err)
	assert.Equal(t, "GLD", cmd.TickerA)
	assert.Equal(t, "QQQ", cmd.TickerB)
	assert.Equal(t, 500, cmd.HistoryDays)
	assert.Equal(t, 60, cmd.Config.OptimizationWindow)
	assert.Equal(t, 10, cmd.Config.AdvanceStep)
	assert.Equal(t, 1.5, cmd.Config.Metric.VolatilityFactor)
	assert.Equal(t, backtest.DispersionUlcer, cmd.Config.Metric.Dispersion)
	assert.Equal(t, 20, cmd.Config.Metric.UlcerWindow)
	assert.Equal(t, 1, cmd.Config.Workers)

	cmd, err = ParseBacktestCommand("BRK-B GC=F", defaultCommand())
	require.NoError(t, err)
	assert.Equal(t, "BRK-B", cmd.TickerA)
	assert.Equal(t, "GC=F", cmd.TickerB)
}

func TestParseBacktestCommandErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"one ticker", "/backtest SPY"},
		{"three tickers", "/backtest SPY TLT GLD"},
		{"same ticker", "/backtest spy SPY"},
		{"bad ticker", "/backtest $$$ TLT"},
		{"bad number", "/backtest window=abc"},
		{"bad factor", "/backtest factor=x"},
		{"unknown option", "/backtest foo=1"},
		{"window too short", "/backtest window=1"},
		{"unknown dispersion", "/backtest dispersion=range"},
		{"no forward window", "/backtest days=60"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBacktestCommand(tt.input, defaultCommand())
			assert.Error(t, err)
		})
	}
}
