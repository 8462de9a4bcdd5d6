package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uisBacktest/internal/backtest"
)

func points(ticker string, dates ...string) []backtest.PricePoint {
	out := make([]backtest.PricePoint, len(dates))
	for i, d := range dates {
		out[i] = backtest.PricePoint{Date: day(d), Ticker: ticker, Close: float64(100 + i)}
	}
	return out
}

func TestCalendarDaysFor(t *testing.T) {
	tests := []struct {
		tradingDays int
		want        int
	}{
		{0, 0},
		{1, 2},
		{253, 366},
		{300, 434},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CalendarDaysFor(tt.tradingDays), "trading days %d", tt.tradingDays)
	}
	end := time.Date(2024, 6, 28, 17, 30, 0, 0, time.UTC)
	assert.Equal(t, day("2023-06-28"), LookbackStart(end, 253))
}

func TestAlignByDate(t *testing.T) {
	a := points("SPY", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08")
	b := points("TLT", "2024-01-01", "2024-01-02", "2024-01-04", "2024-01-05", "2024-01-09")

	outA, outB, dropped := AlignByDate(a, b)
	require.Len(t, outA, 3)
	require.Len(t, outB, 3)
	for i := range outA {
		assert.Equal(t, outA[i].Date, outB[i].Date)
		assert.Equal(t, "SPY", outA[i].Ticker)
		assert.Equal(t, "TLT", outB[i].Ticker)
	}
	assert.Equal(t, day("2024-01-04"), outA[1].Date)
	assert.Equal(t, 102.0, outA[1].Close)
	assert.Equal(t, 102.0, outB[1].Close)
	assert.Equal(t, []time.Time{day("2024-01-01"), day("2024-01-03"), day("2024-01-08"), day("2024-01-09")}, dropped)
}

func TestAlignByDateIdentical(t *testing.T) {
	a := points("SPY", "2024-01-02", "2024-01-03")
	b := points("TLT", "2024-01-02", "2024-01-03")
	outA, outB, dropped := AlignByDate(a, b)
	assert.Equal(t, a, outA)
	assert.Equal(t, b, outB)
	assert.Empty(t, dropped)
}

func TestTrim(t *testing.T) {
	a := points("SPY", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05")
	b := points("TLT", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05")

	ta, tb := Trim(a, b, 2)
	assert.Equal(t, a[2:], ta)
	assert.Equal(t, b[2:], tb)

	ta, tb = Trim(a, b, 10)
	assert.Len(t, ta, 4)
	assert.Len(t, tb, 4)
}
