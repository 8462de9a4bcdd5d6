package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"

	"uisBacktest/internal/config"
	"uisBacktest/internal/finance"
	"uisBacktest/internal/logging"
	"uisBacktest/internal/metrics"
	"uisBacktest/internal/openai"
	"uisBacktest/internal/server"
	"uisBacktest/internal/storage"
	"uisBacktest/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.RequireBot(); err != nil {
		log.Fatal().Err(err).Msg("bot settings")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ensure parent directory for the DB exists
	if cfg.Storage.Driver == "sqlite3" {
		_ = os.MkdirAll(filepath.Dir(cfg.Storage.DSN), 0o755)
	}
	db, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer db.Close()
	if err := storage.InitSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("init schema")
	}
	log.Info().Str("driver", cfg.Storage.Driver).Msg("db: schema ensured (stock_data table)")
	store := storage.NewStore(db, cfg.Storage.Driver)

	m := metrics.New()
	client := finance.NewClient(finance.ClientOptions{
		Timeout:        cfg.Yahoo.Timeout,
		RequestsPerSec: cfg.Yahoo.RPS,
		MaxElapsed:     cfg.Yahoo.MaxElapsed,
		Metrics:        m,
	})
	svc := &finance.Service{
		Updater: finance.NewUpdater(finance.NewYahoo(client, cfg.Yahoo.BaseURL), store, logging.Component("updater")),
		Prices:  store,
		Metrics: m,
		Logger:  logging.Component("backtest"),
	}

	var analyst telegram.Explainer
	if cfg.OpenAI.Key != "" {
		analyst = openai.NewAnalyst(cfg.OpenAI.Key, cfg.OpenAI.Model)
	} else {
		log.Info().Msg("openai: no key, commentary disabled")
	}

	b := cfg.Backtest
	defaults := finance.BacktestCommand{TickerA: b.TickerA, TickerB: b.TickerB, HistoryDays: b.HistoryDays, Config: b.Params()}
	tg, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.WebhookPublicURL, svc, analyst, defaults, logging.Component("telegram"))
	if err != nil {
		log.Fatal().Err(err).Msg("telegram")
	}

	mux := server.NewHTTPMux(tg.WebhookHandler, m.Handler())
	addr := ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Msg("http: listening")
	if err := server.ListenAndServe(ctx, addr, mux); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("http: stopped")
}
