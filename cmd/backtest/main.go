// Command backtest runs one batch backtest pass over the symbol universe and
// persists the per-symbol results.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nicholaslpollard/ChartMonitor/internal/backtest"
	"github.com/nicholaslpollard/ChartMonitor/internal/config"
	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/results"
	"github.com/nicholaslpollard/ChartMonitor/internal/store"
	"github.com/nicholaslpollard/ChartMonitor/internal/strategy"
	"github.com/nicholaslpollard/ChartMonitor/internal/strategy/builtins"
	"github.com/nicholaslpollard/ChartMonitor/internal/universe"
	"github.com/nicholaslpollard/ChartMonitor/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "config file path (default $CHARTMONITOR_CONFIG or config/chartmonitor.yaml)")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbol filter, e.g. AAPL,MSFT")
	force := flag.Bool("force", false, "clear retested flags first, reprocessing the whole universe")
	flag.Parse()

	cfg := loadConfig(*cfgPath)

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	backtestTFs, err := domain.ParseTimeframes(cfg.Backtest.Timeframes)
	if err != nil {
		log.Fatalf("backtest timeframes: %v", err)
	}

	instruments, err := universe.Load(cfg.Universe.CSVPath, cfg.Universe.Benchmark)
	if err != nil {
		log.Fatalf("loading universe: %v", err)
	}
	if *symbolsFlag != "" {
		instruments = filterInstruments(instruments, *symbolsFlag)
		if len(instruments) == 0 {
			log.Fatalf("no universe symbols match -symbols=%s", *symbolsFlag)
		}
	}

	seriesStore := store.NewParquetStore(cfg.Storage.DataDir)
	resultsStore := results.NewStore(cfg.Storage.ResultsPath, logger)

	registry := strategy.NewRegistry()
	builtins.Register(registry)

	sim := backtest.NewSimulator(backtest.ParamsFromConfig(cfg.Backtest))
	agg := backtest.NewAggregator(seriesStore, registry, sim, backtestTFs, logger)
	sched := backtest.NewScheduler(agg, resultsStore, backtest.SchedulerOptionsFromConfig(cfg.Backtest), logger)

	if *force {
		if err := resultsStore.ResetRetested(); err != nil {
			log.Fatalf("clearing retested flags: %v", err)
		}
		logger.Info("retested flags cleared, full rerun")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := sched.Run(ctx, instruments); err != nil {
		log.Fatalf("backtest batch: %v", err)
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

func filterInstruments(instruments []domain.Instrument, filter string) []domain.Instrument {
	want := make(map[string]struct{})
	for _, s := range strings.Split(filter, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			want[s] = struct{}{}
		}
	}
	var out []domain.Instrument
	for _, inst := range instruments {
		if _, ok := want[inst.Symbol]; ok {
			out = append(out, inst)
		}
	}
	return out
}
