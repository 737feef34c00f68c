package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the ChartMonitor pipeline.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Server   Server         `yaml:"server"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Universe Universe       `yaml:"universe"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Backtest BacktestConfig `yaml:"backtest"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Notify   NotifyConfig   `yaml:"notify"`
	Schedule Schedule       `yaml:"schedule"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir     string `yaml:"data_dir"`
	ResultsPath string `yaml:"results_path"`
	JournalPath string `yaml:"journal_path"`
}

// Server holds the HTTP API listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and endpoint for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Universe names the tradable symbol list and the benchmark symbol that is
// always processed even when absent from the list.
type Universe struct {
	CSVPath   string `yaml:"csv_path"`
	Benchmark string `yaml:"benchmark"`
}

// IngestConfig controls candle ingestion from the market-data API.
type IngestConfig struct {
	Days            int      `yaml:"days"`
	BatchSize       int      `yaml:"batch_size"`
	MaxWorkers      int      `yaml:"max_workers"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
	Timeframes      []string `yaml:"timeframes"`
}

// BacktestConfig holds the simulation and scheduling tunables.
type BacktestConfig struct {
	InitialBalance  float64  `yaml:"initial_balance"`
	RiskFraction    float64  `yaml:"risk_fraction"`
	MinRiskAmount   float64  `yaml:"min_risk_amount"`
	StopFactor      float64  `yaml:"stop_factor"`
	TargetFactor    float64  `yaml:"target_factor"`
	LockFactor      float64  `yaml:"lock_factor"`
	ATRPeriod       int      `yaml:"atr_period"`
	Warmup          int      `yaml:"warmup"`
	Lookback        int      `yaml:"lookback"`
	MaxHold         int      `yaml:"max_hold"`
	Cooldown        int      `yaml:"cooldown"`
	Concurrency     int      `yaml:"concurrency"`
	RoundDelayMS    int      `yaml:"round_delay_ms"`
	Timeframes      []string `yaml:"timeframes"`
	RequeueFailures bool     `yaml:"requeue_failures"`
}

// MonitorConfig controls the live monitoring pass.
type MonitorConfig struct {
	MinWinRate float64 `yaml:"min_win_rate"`
}

// NotifyConfig configures webhook alert delivery. An empty URL disables
// notifications.
type NotifyConfig struct {
	WebhookURL  string `yaml:"webhook_url"`
	MaxAttempts int    `yaml:"max_attempts"`
}

// Schedule holds the cron expression driving the daily pipeline.
type Schedule struct {
	Daily      string `yaml:"daily"`
	RunOnStart bool   `yaml:"run_on_start"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, applies
// environment variable overrides, and fills unset fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// Default returns a Config with every field at its default value, for
// callers that run without a config file.
func Default() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("RESULTS_PATH"); v != "" {
		cfg.Storage.ResultsPath = v
	}
	if v := os.Getenv("JOURNAL_PATH"); v != "" {
		cfg.Storage.JournalPath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}

	// Canonical Alpaca SDK env vars win over everything else.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills any field still at its zero value after YAML and env
// processing. Boolean fields keep their zero default.
func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.ResultsPath == "" {
		cfg.Storage.ResultsPath = filepath.Join(cfg.Storage.DataDir, "results.json")
	}
	if cfg.Storage.JournalPath == "" {
		cfg.Storage.JournalPath = filepath.Join(cfg.Storage.DataDir, "journal.db")
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Universe.CSVPath == "" {
		cfg.Universe.CSVPath = "reference/universe.csv"
	}
	if cfg.Universe.Benchmark == "" {
		cfg.Universe.Benchmark = "SPY"
	}

	if cfg.Ingest.Days == 0 {
		cfg.Ingest.Days = 365
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 200
	}
	if cfg.Ingest.MaxWorkers == 0 {
		cfg.Ingest.MaxWorkers = 4
	}
	if cfg.Ingest.RateLimitPerMin == 0 {
		cfg.Ingest.RateLimitPerMin = 200
	}
	if len(cfg.Ingest.Timeframes) == 0 {
		cfg.Ingest.Timeframes = []string{"15m", "1h", "1d", "1w"}
	}

	bt := &cfg.Backtest
	if bt.InitialBalance == 0 {
		bt.InitialBalance = 10000
	}
	if bt.RiskFraction == 0 {
		bt.RiskFraction = 0.02
	}
	if bt.MinRiskAmount == 0 {
		bt.MinRiskAmount = 25
	}
	if bt.StopFactor == 0 {
		bt.StopFactor = 1.5
	}
	if bt.TargetFactor == 0 {
		bt.TargetFactor = 3.0
	}
	if bt.LockFactor == 0 {
		bt.LockFactor = 2.5
	}
	if bt.ATRPeriod == 0 {
		bt.ATRPeriod = 14
	}
	if bt.Warmup == 0 {
		bt.Warmup = 25
	}
	if bt.Lookback == 0 {
		bt.Lookback = 30
	}
	if bt.MaxHold == 0 {
		bt.MaxHold = 12
	}
	if bt.Cooldown == 0 {
		bt.Cooldown = 5
	}
	if bt.Concurrency == 0 {
		bt.Concurrency = 2
	}
	if bt.RoundDelayMS == 0 {
		bt.RoundDelayMS = 1000
	}
	if len(bt.Timeframes) == 0 {
		bt.Timeframes = []string{"15m", "1h", "1d", "1w"}
	}

	if cfg.Monitor.MinWinRate == 0 {
		cfg.Monitor.MinWinRate = 55
	}

	if cfg.Notify.MaxAttempts == 0 {
		cfg.Notify.MaxAttempts = 3
	}

	if cfg.Schedule.Daily == "" {
		cfg.Schedule.Daily = "30 17 * * 1-5"
	}
}

// Validate rejects configurations that would make the backtest arithmetic
// meaningless.
func (c *Config) Validate() error {
	bt := c.Backtest
	if bt.RiskFraction <= 0 || bt.RiskFraction > 1 {
		return fmt.Errorf("backtest.risk_fraction must be in (0, 1], got %v", bt.RiskFraction)
	}
	if bt.StopFactor <= 0 || bt.TargetFactor <= 0 || bt.LockFactor <= 0 {
		return fmt.Errorf("backtest stop/target/lock factors must be positive")
	}
	if bt.InitialBalance <= 0 {
		return fmt.Errorf("backtest.initial_balance must be positive, got %v", bt.InitialBalance)
	}
	if bt.Concurrency < 1 {
		return fmt.Errorf("backtest.concurrency must be at least 1, got %d", bt.Concurrency)
	}
	if bt.Lookback < 2 {
		return fmt.Errorf("backtest.lookback must be at least 2, got %d", bt.Lookback)
	}
	return nil
}
