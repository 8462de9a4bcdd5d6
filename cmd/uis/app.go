package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"uisBacktest/internal/config"
	"uisBacktest/internal/finance"
	"uisBacktest/internal/logging"
	"uisBacktest/internal/storage"
)

// stdout receives reports; errors go to os.Stderr.
var stdout io.Writer = os.Stdout

// app is the per-invocation environment shared by the subcommands.
type app struct {
	cfg   *config.Config
	db    *sql.DB
	store *storage.Store
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.Storage.Driver == "sqlite3" && !strings.HasPrefix(cfg.Storage.DSN, "file:") && cfg.Storage.DSN != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DSN), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	if err := storage.InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &app{cfg: cfg, db: db, store: storage.NewStore(db, cfg.Storage.Driver)}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("close store")
	}
}

func (a *app) updater() *finance.Updater {
	client := finance.NewClient(finance.ClientOptions{
		Timeout:        a.cfg.Yahoo.Timeout,
		RequestsPerSec: a.cfg.Yahoo.RPS,
		MaxElapsed:     a.cfg.Yahoo.MaxElapsed,
	})
	return finance.NewUpdater(finance.NewYahoo(client, a.cfg.Yahoo.BaseURL), a.store, log.Logger)
}

// service runs on stored prices only when offline is set.
func (a *app) service(offline bool) *finance.Service {
	svc := &finance.Service{Prices: a.store, Logger: log.Logger, Now: time.Now}
	if !offline {
		svc.Updater = a.updater()
	}
	return svc
}

func (a *app) defaults() finance.BacktestCommand {
	b := a.cfg.Backtest
	return finance.BacktestCommand{TickerA: b.TickerA, TickerB: b.TickerB, HistoryDays: b.HistoryDays, Config: b.Params()}
}

func writePNG(dir, name string, img []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, img, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "wrote", p)
	return nil
}
