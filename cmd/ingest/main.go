// Command ingest pulls candle history for the symbol universe from the
// Alpaca market-data API into the candle store.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nicholaslpollard/ChartMonitor/internal/config"
	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/ingest"
	"github.com/nicholaslpollard/ChartMonitor/internal/store"
	"github.com/nicholaslpollard/ChartMonitor/internal/universe"
	"github.com/nicholaslpollard/ChartMonitor/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "config file path (default $CHARTMONITOR_CONFIG or config/chartmonitor.yaml)")
	days := flag.Int("days", 0, "override trailing history window in days")
	flag.Parse()

	cfg := loadConfig(*cfgPath)
	if *days > 0 {
		cfg.Ingest.Days = *days
	}
	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		log.Fatal("alpaca credentials missing: set alpaca.api_key/api_secret or APCA_API_KEY_ID/APCA_API_SECRET_KEY")
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	ingestTFs, err := domain.ParseTimeframes(cfg.Ingest.Timeframes)
	if err != nil {
		log.Fatalf("ingest timeframes: %v", err)
	}

	instruments, err := universe.Load(cfg.Universe.CSVPath, cfg.Universe.Benchmark)
	if err != nil {
		log.Fatalf("loading universe: %v", err)
	}
	symbols := make([]string, len(instruments))
	for i, inst := range instruments {
		symbols[i] = inst.Symbol
	}

	ingestor := ingest.NewIngestor(cfg.Alpaca, store.NewParquetStore(cfg.Storage.DataDir), ingest.Options{
		Days:            cfg.Ingest.Days,
		BatchSize:       cfg.Ingest.BatchSize,
		MaxWorkers:      cfg.Ingest.MaxWorkers,
		RateLimitPerMin: cfg.Ingest.RateLimitPerMin,
		Timeframes:      ingestTFs,
	}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := ingestor.Run(ctx, symbols); err != nil {
		log.Fatalf("ingest: %v", err)
	}
}

// loadConfig resolves the config path from flag, environment, then the
// default location; a missing default file falls back to built-in defaults.
func loadConfig(path string) *config.Config {
	if path == "" {
		path = os.Getenv("CHARTMONITOR_CONFIG")
	}
	if path == "" {
		path = "config/chartmonitor.yaml"
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default()
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}
	return cfg
}
