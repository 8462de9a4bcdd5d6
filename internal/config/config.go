package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"uisBacktest/internal/backtest"
)

type Config struct {
	Backtest BacktestConfig `yaml:"backtest" envconfig:"BACKTEST"`
	Storage  StorageConfig  `yaml:"storage" envconfig:"STORAGE"`
	Yahoo    YahooConfig    `yaml:"yahoo" envconfig:"YAHOO"`
	Telegram TelegramConfig `yaml:"telegram" envconfig:"TELEGRAM"`
	OpenAI   OpenAIConfig   `yaml:"openai" envconfig:"OPENAI"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Log      LogConfig      `yaml:"log" envconfig:"LOG"`
}

// BacktestConfig holds the default pair and walk-forward parameters.
type BacktestConfig struct {
	TickerA     string  `yaml:"ticker_a" envconfig:"TICKER_A" default:"SPY"`
	TickerB     string  `yaml:"ticker_b" envconfig:"TICKER_B" default:"TLT"`
	Window      int     `yaml:"window" envconfig:"WINDOW" default:"50"`
	Advance     int     `yaml:"advance" envconfig:"ADVANCE" default:"21"`
	Factor      float64 `yaml:"factor" envconfig:"FACTOR" default:"2"`
	Dispersion  string  `yaml:"dispersion" envconfig:"DISPERSION" default:"stddev"`
	UlcerWindow int     `yaml:"ulcer_window" envconfig:"ULCER_WINDOW" default:"14"`
	Workers     int     `yaml:"workers" envconfig:"WORKERS" default:"1"`
	// HistoryDays is the look-back in trading days loaded for a run.
	HistoryDays int `yaml:"history_days" envconfig:"HISTORY_DAYS" default:"1260"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"DRIVER" default:"sqlite3"`
	DSN    string `yaml:"dsn" envconfig:"DSN" default:"data/stock.db"`
}

type YahooConfig struct {
	BaseURL    string        `yaml:"base_url" envconfig:"BASE_URL"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"15s"`
	RPS        int           `yaml:"rps" envconfig:"RPS" default:"2"`
	MaxElapsed time.Duration `yaml:"max_elapsed" envconfig:"MAX_ELAPSED" default:"30s"`
}

type TelegramConfig struct {
	Token            string `yaml:"token" envconfig:"TOKEN"`
	WebhookPublicURL string `yaml:"webhook_public_url" envconfig:"WEBHOOK_PUBLIC_URL"`
}

type OpenAIConfig struct {
	Key   string `yaml:"key" envconfig:"KEY"`
	Model string `yaml:"model" envconfig:"MODEL" default:"gpt-4"`
}

type ServerConfig struct {
	Port string `yaml:"port" envconfig:"PORT" default:"9095"`
}

type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format string `yaml:"format" envconfig:"FORMAT" default:"console"`
}

// Load reads .env, the UIS_* environment and, when UIS_CONFIG_FILE names one, a YAML file
// whose keys override the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config
	if err := envconfig.Process("UIS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path := os.Getenv("UIS_CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFile decodes YAML over cfg; keys absent from the file keep their current values.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) Validate() error {
	if err := c.Backtest.Params().Validate(); err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	if c.Backtest.TickerA == "" || c.Backtest.TickerB == "" {
		return errors.New("backtest: both tickers are required")
	}
	if c.Backtest.HistoryDays < c.Backtest.Window {
		return fmt.Errorf("backtest: history of %d days is shorter than the %d day window",
			c.Backtest.HistoryDays, c.Backtest.Window)
	}
	switch c.Storage.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("storage: unsupported driver %q", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return errors.New("storage: dsn is required")
	}
	if c.Yahoo.RPS < 1 {
		return fmt.Errorf("yahoo: rps must be at least 1, got %d", c.Yahoo.RPS)
	}
	return nil
}

// RequireBot reports the settings the Telegram webhook bot cannot start without.
func (c *Config) RequireBot() error {
	var missing []error
	if c.Telegram.Token == "" {
		missing = append(missing, errors.New("missing env UIS_TELEGRAM_TOKEN"))
	}
	if c.Telegram.WebhookPublicURL == "" {
		missing = append(missing, errors.New("missing env UIS_TELEGRAM_WEBHOOK_PUBLIC_URL"))
	}
	return errors.Join(missing...)
}

// Params converts the section into run parameters.
func (b BacktestConfig) Params() backtest.Config {
	return backtest.Config{
		OptimizationWindow: b.Window,
		AdvanceStep:        b.Advance,
		Metric: backtest.MetricConfig{
			Dispersion:       backtest.DispersionKind(b.Dispersion),
			VolatilityFactor: b.Factor,
			UlcerWindow:      b.UlcerWindow,
		},
		Workers: b.Workers,
	}
}
