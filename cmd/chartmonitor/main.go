// Command chartmonitor is the long-running pipeline daemon: it schedules the
// daily ingest → backtest → live-monitor cycle and serves the results API.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nicholaslpollard/ChartMonitor/internal/backtest"
	"github.com/nicholaslpollard/ChartMonitor/internal/config"
	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/httpapi"
	"github.com/nicholaslpollard/ChartMonitor/internal/ingest"
	"github.com/nicholaslpollard/ChartMonitor/internal/journal"
	"github.com/nicholaslpollard/ChartMonitor/internal/monitor"
	"github.com/nicholaslpollard/ChartMonitor/internal/notify"
	"github.com/nicholaslpollard/ChartMonitor/internal/results"
	"github.com/nicholaslpollard/ChartMonitor/internal/store"
	"github.com/nicholaslpollard/ChartMonitor/internal/strategy"
	"github.com/nicholaslpollard/ChartMonitor/internal/strategy/builtins"
	"github.com/nicholaslpollard/ChartMonitor/internal/universe"
	"github.com/nicholaslpollard/ChartMonitor/internal/util"
)

func main() {
	cfg := loadConfig()

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	ingestTFs, err := domain.ParseTimeframes(cfg.Ingest.Timeframes)
	if err != nil {
		log.Fatalf("ingest timeframes: %v", err)
	}
	backtestTFs, err := domain.ParseTimeframes(cfg.Backtest.Timeframes)
	if err != nil {
		log.Fatalf("backtest timeframes: %v", err)
	}

	instruments, err := universe.Load(cfg.Universe.CSVPath, cfg.Universe.Benchmark)
	if err != nil {
		log.Fatalf("loading universe: %v", err)
	}
	symbols := make([]string, len(instruments))
	for i, inst := range instruments {
		symbols[i] = inst.Symbol
	}

	seriesStore := store.NewParquetStore(cfg.Storage.DataDir)
	resultsStore := results.NewStore(cfg.Storage.ResultsPath, logger)

	jrnl, err := journal.Open(cfg.Storage.JournalPath, logger)
	if err != nil {
		log.Fatalf("opening alert journal: %v", err)
	}
	defer jrnl.Close()

	registry := strategy.NewRegistry()
	builtins.Register(registry)

	ingestor := ingest.NewIngestor(cfg.Alpaca, seriesStore, ingest.Options{
		Days:            cfg.Ingest.Days,
		BatchSize:       cfg.Ingest.BatchSize,
		MaxWorkers:      cfg.Ingest.MaxWorkers,
		RateLimitPerMin: cfg.Ingest.RateLimitPerMin,
		Timeframes:      ingestTFs,
	}, logger)

	sim := backtest.NewSimulator(backtest.ParamsFromConfig(cfg.Backtest))
	agg := backtest.NewAggregator(seriesStore, registry, sim, backtestTFs, logger)
	sched := backtest.NewScheduler(agg, resultsStore, backtest.SchedulerOptionsFromConfig(cfg.Backtest), logger)

	mon := monitor.New(resultsStore, seriesStore, registry, jrnl, notify.New(cfg.Notify, logger), monitor.Options{
		MinWinRate: cfg.Monitor.MinWinRate,
		Lookback:   cfg.Backtest.Lookback,
		Cooldown:   cfg.Backtest.Cooldown,
	}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// newCycle resets the retested flags: a scheduled fire opens a fresh
	// cycle, while RUN_ON_START resumes whatever the last cycle left behind.
	var running atomic.Bool
	pipeline := func(newCycle bool) {
		if !running.CompareAndSwap(false, true) {
			logger.Warn("previous pipeline run still active, skipping trigger")
			return
		}
		defer running.Store(false)

		start := time.Now()
		logger.Info("daily pipeline starting", "newCycle", newCycle)

		if cfg.Alpaca.APIKey == "" {
			logger.Info("no alpaca credentials, skipping ingest")
		} else if err := ingestor.Run(ctx, symbols); err != nil {
			logger.Error("ingest failed, continuing with stored candles", "error", err)
		}

		if newCycle {
			if err := resultsStore.ResetRetested(); err != nil {
				logger.Error("opening retest cycle failed", "error", err)
				return
			}
		}
		if err := sched.Run(ctx, instruments); err != nil {
			logger.Error("backtest batch failed", "error", err)
			return
		}
		if _, err := mon.Run(ctx); err != nil {
			logger.Error("live pass failed", "error", err)
			return
		}

		logger.Info("daily pipeline complete", "elapsed", time.Since(start).Round(time.Second))
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule.Daily, func() { pipeline(true) }); err != nil {
		log.Fatalf("registering daily schedule %q: %v", cfg.Schedule.Daily, err)
	}
	c.Start()
	defer c.Stop()

	if cfg.Schedule.RunOnStart {
		logger.Info("run-on-start enabled, resuming pipeline now")
		go pipeline(false)
	}

	api := httpapi.NewServer(resultsStore, jrnl, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.Handler(),
	}

	go func() {
		logger.Info("api listening", "addr", httpServer.Addr, "schedule", cfg.Schedule.Daily)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
}

// loadConfig resolves the config path from $CHARTMONITOR_CONFIG, then the
// default location; a missing default file falls back to built-in defaults so
// the daemon can run on environment variables alone.
func loadConfig() *config.Config {
	path := os.Getenv("CHARTMONITOR_CONFIG")
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
