package finance

import "math"

// filterNonNegative removes bars whose close is missing, non-positive or not finite.
func filterNonNegative(bars []Bar) []Bar {
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if !(b.Close > 0) || math.IsInf(b.Close, 0) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// dedupeDays keeps the last bar of each day. Yahoo repeats the live session as an extra row.
func dedupeDays(bars []Bar) []Bar {
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
