package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"uisBacktest/internal/storage"
)

// extraDays widens every download so a start date that is not a trading day still overlaps
// stored history.
const extraDays = 5

type BarSource interface {
	DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
}

type BarStore interface {
	FirstDate(ctx context.Context, ticker string) (time.Time, bool, error)
	LastDate(ctx context.Context, ticker string) (time.Time, bool, error)
	SaveBars(ctx context.Context, bars []storage.Bar) (inserted, skipped int, err error)
}

// SyncResult reports what one ticker's download added.
type SyncResult struct {
	Ticker   string
	From     time.Time
	To       time.Time
	Fetched  int
	Inserted int
	Skipped  int
	UpToDate bool
}

// Updater keeps the price store current by downloading only what it is missing.
type Updater struct {
	src    BarSource
	store  BarStore
	logger zerolog.Logger
}

func NewUpdater(src BarSource, store BarStore, logger zerolog.Logger) *Updater {
	return &Updater{src: src, store: store, logger: logger}
}

// Sync makes the store cover [start, end] for every ticker. History older than the first
// stored day is backfilled, and only days after the last stored day are downloaded forward.
func (u *Updater) Sync(ctx context.Context, tickers []string, start, end time.Time) ([]SyncResult, error) {
	out := make([]SyncResult, 0, len(tickers))
	for _, ticker := range tickers {
		res, err := u.syncOne(ctx, ticker, dayOf(start), dayOf(end))
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (u *Updater) syncOne(ctx context.Context, ticker string, start, end time.Time) (SyncResult, error) {
	res := SyncResult{Ticker: ticker, From: start, To: end}

	last, ok, err := u.store.LastDate(ctx, ticker)
	if err != nil {
		return res, fmt.Errorf("last stored date of %s: %w", ticker, err)
	}
	if !ok {
		return res, u.download(ctx, &res, start, end)
	}

	first, _, err := u.store.FirstDate(ctx, ticker)
	if err != nil {
		return res, fmt.Errorf("first stored date of %s: %w", ticker, err)
	}
	backfill := dayOf(first).After(start)
	if backfill {
		if err := u.download(ctx, &res, start, dayOf(first)); err != nil {
			return res, err
		}
	}

	from := start
	if next := dayOf(last).AddDate(0, 0, 1); next.After(from) {
		from = next
	}
	if !backfill {
		res.From = from
	}
	if from.After(end) {
		if !backfill {
			res.UpToDate = true
			u.logger.Debug().Str("ticker", ticker).Msg("already up to date")
		}
		return res, nil
	}
	return res, u.download(ctx, &res, from, end)
}

// download fetches [from-extraDays, to] and adds the counts to res.
func (u *Updater) download(ctx context.Context, res *SyncResult, from, to time.Time) error {
	bars, err := u.src.DailyBars(ctx, res.Ticker, from.AddDate(0, 0, -extraDays), to)
	if err != nil {
		return err
	}

	rows := make([]storage.Bar, len(bars))
	for i, b := range bars {
		rows[i] = storage.Bar{
			Date:   b.Date,
			Ticker: res.Ticker,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	inserted, skipped, err := u.store.SaveBars(ctx, rows)
	if err != nil {
		return fmt.Errorf("save %s: %w", res.Ticker, err)
	}
	res.Fetched += len(bars)
	res.Inserted += inserted
	res.Skipped += skipped
	u.logger.Info().
		Str("ticker", res.Ticker).
		Str("from", from.Format(time.DateOnly)).
		Str("to", to.Format(time.DateOnly)).
		Int("fetched", len(bars)).
		Int("inserted", inserted).
		Int("skipped", skipped).
		Msg("prices synced")
	return nil
}
