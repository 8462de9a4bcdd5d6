package finance

import (
	"math"
	"time"

	"uisBacktest/internal/backtest"
)

const (
	tradingDaysPerYear  = 253
	calendarDaysPerYear = 365.25
)

// CalendarDaysFor converts a look-back in trading days into calendar days, rounded up.
func CalendarDaysFor(tradingDays int) int {
	return int(math.Ceil(float64(tradingDays) * calendarDaysPerYear / tradingDaysPerYear))
}

// LookbackStart is the calendar date far enough before end to cover tradingDays sessions.
func LookbackStart(end time.Time, tradingDays int) time.Time {
	return dayOf(end).AddDate(0, 0, -CalendarDaysFor(tradingDays))
}

// AlignByDate keeps only the days both series share, in order, and returns the days dropped
// from either side. Inputs must be ascending.
func AlignByDate(a, b []backtest.PricePoint) (outA, outB []backtest.PricePoint, dropped []time.Time) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		da, db := dayOf(a[i].Date), dayOf(b[j].Date)
		switch {
		case da.Equal(db):
			outA = append(outA, a[i])
			outB = append(outB, b[j])
			i++
			j++
		case da.Before(db):
			dropped = append(dropped, da)
			i++
		default:
			dropped = append(dropped, db)
			j++
		}
	}
	for ; i < len(a); i++ {
		dropped = append(dropped, dayOf(a[i].Date))
	}
	for ; j < len(b); j++ {
		dropped = append(dropped, dayOf(b[j].Date))
	}
	return outA, outB, dropped
}

// Trim keeps the last n points of an aligned pair.
func Trim(a, b []backtest.PricePoint, n int) ([]backtest.PricePoint, []backtest.PricePoint) {
	if n <= 0 || n >= len(a) {
		return a, b
	}
	return a[len(a)-n:], b[len(b)-n:]
}
