package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"uisBacktest/internal/backtest"
)

// Bar is one stored daily row. Close is the adjusted close.
type Bar struct {
	Date   time.Time
	Ticker string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Coverage summarizes what the store holds for one ticker.
type Coverage struct {
	Ticker string
	First  time.Time
	Last   time.Time
	Rows   int
}

// SaveBars inserts bars, skipping any (date, ticker) already present.
func (s *Store) SaveBars(ctx context.Context, bars []Bar) (inserted, skipped int, err error) {
	if len(bars) == 0 {
		return 0, 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO stock_data(date,ticker,open,high,low,close,volume)
		VALUES(?,?,?,?,?,?,?) ON CONFLICT(date, ticker) DO NOTHING`))
	if err != nil {
		return 0, 0, err
	}
	defer stmt.Close()

	for _, b := range bars {
		res, err := stmt.ExecContext(ctx, b.Date.Format(time.DateOnly), b.Ticker, b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return 0, 0, fmt.Errorf("insert %s %s: %w", b.Ticker, b.Date.Format(time.DateOnly), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, err
		}
		if n > 0 {
			inserted++
		} else {
			skipped++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return inserted, skipped, nil
}

// LastDate returns the latest stored day for ticker; ok is false when none is stored.
func (s *Store) LastDate(ctx context.Context, ticker string) (last time.Time, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		s.rebind(`SELECT date FROM stock_data WHERE ticker=? ORDER BY date DESC LIMIT 1`), ticker).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return last, true, nil
}

// FirstDate returns the earliest stored day for ticker; ok is false when none is stored.
func (s *Store) FirstDate(ctx context.Context, ticker string) (first time.Time, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		s.rebind(`SELECT date FROM stock_data WHERE ticker=? ORDER BY date ASC LIMIT 1`), ticker).Scan(&first)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return first, true, nil
}

// PriceSeries returns the ascending closes of ticker between start and end inclusive.
func (s *Store) PriceSeries(ctx context.Context, ticker string, start, end time.Time) ([]backtest.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT date, close FROM stock_data
		WHERE ticker=? AND date>=? AND date<=? ORDER BY date ASC`),
		ticker, start.Format(time.DateOnly), end.Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []backtest.PricePoint
	for rows.Next() {
		p := backtest.PricePoint{Ticker: ticker}
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Coverage lists every stored ticker with its date range and row count.
func (s *Store) Coverage(ctx context.Context) ([]Coverage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ticker, MIN(date), MAX(date), COUNT(*) FROM stock_data GROUP BY ticker ORDER BY ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Coverage
	for rows.Next() {
		var c Coverage
		var first, last any
		if err := rows.Scan(&c.Ticker, &first, &last, &c.Rows); err != nil {
			return nil, err
		}
		if c.First, err = asDay(first); err != nil {
			return nil, err
		}
		if c.Last, err = asDay(last); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// asDay reads an aggregated date column, which sqlite returns as text.
func asDay(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case string:
		return time.Parse(time.DateOnly, d)
	case []byte:
		return time.Parse(time.DateOnly, string(d))
	default:
		return time.Time{}, fmt.Errorf("unexpected date value %T", v)
	}
}
