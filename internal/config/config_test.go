package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_DIR", "RESULTS_PATH", "JOURNAL_PATH",
		"ALPACA_API_KEY", "ALPACA_API_SECRET", "ALPACA_DATA_URL",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
		"LOG_LEVEL", "WEBHOOK_URL",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadFull(t *testing.T) {
	clearEnv(t)

	path := writeTempConfig(t, `
storage:
  data_dir: "/tmp/chartmonitor/data"
  results_path: "/tmp/chartmonitor/results.json"
  journal_path: "/tmp/chartmonitor/journal.db"
server:
  host: "0.0.0.0"
  port: 9000
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  data_url: "https://data.alpaca.markets"
logging:
  level: "debug"
  format: "text"
universe:
  csv_path: "reference/sp500.csv"
  benchmark: "QQQ"
ingest:
  days: 180
  batch_size: 100
  max_workers: 2
  rate_limit_per_min: 60
  timeframes: ["1d", "1w"]
backtest:
  initial_balance: 25000
  risk_fraction: 0.01
  min_risk_amount: 50
  stop_factor: 2.0
  target_factor: 4.0
  lock_factor: 3.0
  atr_period: 10
  warmup: 20
  lookback: 40
  max_hold: 10
  cooldown: 3
  concurrency: 4
  round_delay_ms: 250
  timeframes: ["1h", "1d"]
  requeue_failures: true
monitor:
  min_win_rate: 65
notify:
  webhook_url: "https://hooks.example.com/alerts"
  max_attempts: 5
schedule:
  daily: "0 18 * * 1-5"
  run_on_start: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/chartmonitor/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/chartmonitor/data")
	}
	if cfg.Storage.ResultsPath != "/tmp/chartmonitor/results.json" {
		t.Errorf("Storage.ResultsPath = %q, want %q", cfg.Storage.ResultsPath, "/tmp/chartmonitor/results.json")
	}

	// -- Server --
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9000)
	}

	// -- Alpaca --
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}
	if cfg.Alpaca.APISecret != "test-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q", cfg.Alpaca.APISecret, "test-secret")
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "text")
	}

	// -- Universe --
	if cfg.Universe.Benchmark != "QQQ" {
		t.Errorf("Universe.Benchmark = %q, want %q", cfg.Universe.Benchmark, "QQQ")
	}

	// -- Ingest --
	if cfg.Ingest.Days != 180 {
		t.Errorf("Ingest.Days = %d, want %d", cfg.Ingest.Days, 180)
	}
	if len(cfg.Ingest.Timeframes) != 2 || cfg.Ingest.Timeframes[0] != "1d" {
		t.Errorf("Ingest.Timeframes = %v, want [1d 1w]", cfg.Ingest.Timeframes)
	}

	// -- Backtest --
	if cfg.Backtest.InitialBalance != 25000 {
		t.Errorf("Backtest.InitialBalance = %v, want %v", cfg.Backtest.InitialBalance, 25000.0)
	}
	if cfg.Backtest.RiskFraction != 0.01 {
		t.Errorf("Backtest.RiskFraction = %v, want %v", cfg.Backtest.RiskFraction, 0.01)
	}
	if cfg.Backtest.Concurrency != 4 {
		t.Errorf("Backtest.Concurrency = %d, want %d", cfg.Backtest.Concurrency, 4)
	}
	if !cfg.Backtest.RequeueFailures {
		t.Error("Backtest.RequeueFailures = false, want true")
	}

	// -- Monitor / Notify / Schedule --
	if cfg.Monitor.MinWinRate != 65 {
		t.Errorf("Monitor.MinWinRate = %v, want %v", cfg.Monitor.MinWinRate, 65.0)
	}
	if cfg.Notify.MaxAttempts != 5 {
		t.Errorf("Notify.MaxAttempts = %d, want %d", cfg.Notify.MaxAttempts, 5)
	}
	if cfg.Schedule.Daily != "0 18 * * 1-5" {
		t.Errorf("Schedule.Daily = %q, want %q", cfg.Schedule.Daily, "0 18 * * 1-5")
	}
	if !cfg.Schedule.RunOnStart {
		t.Error("Schedule.RunOnStart = false, want true")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() returned error for valid config: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	// A minimal file exercises the default fill for everything else.
	path := writeTempConfig(t, `
alpaca:
  api_key: "k"
  api_secret: "s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "data")
	}
	if cfg.Storage.ResultsPath != filepath.Join("data", "results.json") {
		t.Errorf("Storage.ResultsPath = %q, want default under data dir", cfg.Storage.ResultsPath)
	}
	if cfg.Backtest.Warmup != 25 {
		t.Errorf("Backtest.Warmup = %d, want %d", cfg.Backtest.Warmup, 25)
	}
	if cfg.Backtest.Lookback != 30 {
		t.Errorf("Backtest.Lookback = %d, want %d", cfg.Backtest.Lookback, 30)
	}
	if cfg.Backtest.MaxHold != 12 {
		t.Errorf("Backtest.MaxHold = %d, want %d", cfg.Backtest.MaxHold, 12)
	}
	if cfg.Backtest.Cooldown != 5 {
		t.Errorf("Backtest.Cooldown = %d, want %d", cfg.Backtest.Cooldown, 5)
	}
	if cfg.Backtest.Concurrency != 2 {
		t.Errorf("Backtest.Concurrency = %d, want %d", cfg.Backtest.Concurrency, 2)
	}
	if cfg.Backtest.StopFactor != 1.5 || cfg.Backtest.TargetFactor != 3.0 || cfg.Backtest.LockFactor != 2.5 {
		t.Errorf("Backtest factors = %v/%v/%v, want 1.5/3/2.5",
			cfg.Backtest.StopFactor, cfg.Backtest.TargetFactor, cfg.Backtest.LockFactor)
	}
	if cfg.Backtest.RequeueFailures {
		t.Error("Backtest.RequeueFailures = true, want false by default")
	}
	if cfg.Universe.Benchmark != "SPY" {
		t.Errorf("Universe.Benchmark = %q, want %q", cfg.Universe.Benchmark, "SPY")
	}
	if len(cfg.Backtest.Timeframes) != 4 {
		t.Errorf("Backtest.Timeframes = %v, want all four", cfg.Backtest.Timeframes)
	}
	if cfg.Monitor.MinWinRate != 55 {
		t.Errorf("Monitor.MinWinRate = %v, want %v", cfg.Monitor.MinWinRate, 55.0)
	}
	if cfg.Schedule.Daily == "" {
		t.Error("Schedule.Daily should have a default cron expression")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() returned error for default config: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)

	path := writeTempConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	os.Setenv("ALPACA_API_KEY", "env-key")
	os.Setenv("DATA_DIR", "/env/data")
	os.Setenv("WEBHOOK_URL", "https://hooks.example.com/x")
	defer clearEnv(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Notify.WebhookURL != "https://hooks.example.com/x" {
		t.Errorf("Notify.WebhookURL = %q, want env override", cfg.Notify.WebhookURL)
	}
	// Defaults still fill paths derived from the overridden data dir.
	if cfg.Storage.ResultsPath != filepath.Join("/env/data", "results.json") {
		t.Errorf("Storage.ResultsPath = %q, want default under env data dir", cfg.Storage.ResultsPath)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := Default()
	cfg.Backtest.RiskFraction = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject risk_fraction > 1")
	}

	cfg = Default()
	cfg.Backtest.StopFactor = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject negative stop_factor")
	}
}
