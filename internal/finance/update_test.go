package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uisBacktest/internal/storage"
)

type fakeBars struct {
	calls []time.Time
	err   error
}

// DailyBars returns one bar per weekday in range with a rising close.
func (f *fakeBars) DailyBars(_ context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	f.calls = append(f.calls, start)
	if f.err != nil {
		return nil, f.err
	}
	var out []Bar
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, Bar{Date: d, Ticker: symbol, Close: 100 + float64(d.YearDay())})
	}
	return out, nil
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	db, err := storage.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.InitSchema(context.Background(), db))
	return storage.NewStore(db, "sqlite3")
}

func TestUpdaterSync(t *testing.T) {
	ctx := context.Background()
	src := &fakeBars{}
	store := newTestStore(t)
	u := NewUpdater(src, store, zerolog.Nop())

	res, err := u.Sync(ctx, []string{"SPY"}, day("2024-01-08"), day("2024-01-12"))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, day("2024-01-03"), src.calls[0], "empty store starts extraDays before the request")
	assert.Equal(t, 8, res[0].Inserted)
	assert.Zero(t, res[0].Skipped)

	src.calls = nil
	res, err = u.Sync(ctx, []string{"SPY"}, day("2024-01-08"), day("2024-01-19"))
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-08"), src.calls[0], "resumes after 2024-01-12 with slack")
	assert.Equal(t, day("2024-01-13"), res[0].From)
	assert.Equal(t, 5, res[0].Inserted)
	assert.Equal(t, 5, res[0].Skipped)

	src.calls = nil
	res, err = u.Sync(ctx, []string{"SPY"}, day("2024-01-08"), day("2024-01-19"))
	require.NoError(t, err)
	assert.True(t, res[0].UpToDate)
	assert.Empty(t, src.calls)

	series, err := store.PriceSeries(ctx, "SPY", day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	assert.Len(t, series, 13)
}

func TestUpdaterSyncBackfillsOlderHistory(t *testing.T) {
	ctx := context.Background()
	src := &fakeBars{}
	store := newTestStore(t)
	u := NewUpdater(src, store, zerolog.Nop())

	_, err := u.Sync(ctx, []string{"SPY"}, day("2024-03-01"), day("2024-04-30"))
	require.NoError(t, err)
	series, err := store.PriceSeries(ctx, "SPY", day("2020-01-01"), day("2024-12-31"))
	require.NoError(t, err)
	require.Len(t, series, 47)

	src.calls = nil
	res, err := u.Sync(ctx, []string{"SPY"}, day("2023-01-02"), day("2024-04-30"))
	require.NoError(t, err)
	assert.False(t, res[0].UpToDate)
	assert.Equal(t, day("2023-01-02"), res[0].From)
	assert.Equal(t, []time.Time{day("2022-12-28")}, src.calls, "only the missing head is downloaded")
	assert.Equal(t, 303, res[0].Inserted)
	assert.Equal(t, 1, res[0].Skipped)

	series, err = store.PriceSeries(ctx, "SPY", day("2023-01-02"), day("2024-04-30"))
	require.NoError(t, err)
	assert.Len(t, series, 347)

	src.calls = nil
	res, err = u.Sync(ctx, []string{"SPY"}, day("2023-01-02"), day("2024-04-30"))
	require.NoError(t, err)
	assert.True(t, res[0].UpToDate)
	assert.Empty(t, src.calls)
}

func TestUpdaterSyncBackfillAndExtend(t *testing.T) {
	ctx := context.Background()
	src := &fakeBars{}
	store := newTestStore(t)
	u := NewUpdater(src, store, zerolog.Nop())

	_, err := u.Sync(ctx, []string{"SPY"}, day("2024-03-01"), day("2024-03-29"))
	require.NoError(t, err)

	src.calls = nil
	res, err := u.Sync(ctx, []string{"SPY"}, day("2024-02-01"), day("2024-04-12"))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2024-01-27"), day("2024-03-25")}, src.calls)
	assert.False(t, res[0].UpToDate)

	series, err := store.PriceSeries(ctx, "SPY", day("2024-02-01"), day("2024-04-12"))
	require.NoError(t, err)
	assert.Len(t, series, 52)
}

func TestUpdaterSyncError(t *testing.T) {
	u := NewUpdater(&fakeBars{err: errors.New("yahoo down")}, newTestStore(t), zerolog.Nop())
	_, err := u.Sync(context.Background(), []string{"SPY", "TLT"}, day("2024-01-08"), day("2024-01-12"))
	assert.ErrorContains(t, err, "yahoo down")
}
