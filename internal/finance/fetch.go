package finance

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var defaultHosts = []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"}

// Yahoo downloads daily history from the v8 chart endpoint.
type Yahoo struct {
	client *Client
	hosts  []string
}

// NewYahoo uses baseURL when set, else the public query1/query2 hosts in turn.
func NewYahoo(client *Client, baseURL string) *Yahoo {
	hosts := defaultHosts
	if baseURL != "" {
		hosts = []string{strings.TrimRight(baseURL, "/")}
	}
	return &Yahoo{client: client, hosts: hosts}
}

// DailyBars returns the ascending daily bars of symbol with dates in [start, end].
// Rows without a usable close are dropped.
func (y *Yahoo) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("empty symbol")
	}
	start, end = dayOf(start), dayOf(end)
	if start.After(end) {
		return nil, fmt.Errorf("start %s after end %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	var yc yahooChartResp
	var lastErr error
	for _, host := range y.hosts {
		u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div%%2Csplits&includeAdjustedClose=true",
			host, url.PathEscape(symbol), start.Unix(), end.AddDate(0, 0, 1).Unix())
		if lastErr = y.client.getJSON(ctx, u, symbol, &yc); lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, lastErr)
	}
	return parseDailyBars(symbol, &yc, start, end)
}

func parseDailyBars(symbol string, yc *yahooChartResp, start, end time.Time) ([]Bar, error) {
	if e := yc.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(yc.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: no data", symbol)
	}
	r := yc.Chart.Result[0]
	if len(r.Timestamp) == 0 || len(r.Indicators.Quote) == 0 {
		// no trading days in range
		return nil, nil
	}
	q := r.Indicators.Quote[0]
	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}
	loc := exchangeLocation(r.Meta.Timezone)

	bars := make([]Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		b := Bar{
			Date:     dayOf(time.Unix(ts, 0).In(loc)),
			Ticker:   symbol,
			Open:     at(q.Open, i),
			High:     at(q.High, i),
			Low:      at(q.Low, i),
			RawClose: at(q.Close, i),
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			b.Volume = *q.Volume[i]
		}
		b.Close = b.RawClose
		if v := at(adj, i); v > 0 {
			b.Close = v
		}
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		bars = append(bars, b)
	}
	return dedupeDays(filterNonNegative(bars)), nil
}

// at reads a nullable array element; missing and null read as zero.
func at(v []*float64, i int) float64 {
	if i >= len(v) || v[i] == nil {
		return 0
	}
	return *v[i]
}

// dayOf truncates t to its calendar day in its own location, returned as UTC midnight.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
