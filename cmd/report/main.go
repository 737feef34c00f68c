// Command report prints the persisted backtest results, ranked by overall
// win rate. With a symbol argument it prints that symbol's per-timeframe
// breakdown instead.
//
// Usage:
//
//	report [-limit N] [SYMBOL]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/nicholaslpollard/ChartMonitor/internal/config"
	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/results"
	"github.com/nicholaslpollard/ChartMonitor/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "config file path (default $CHARTMONITOR_CONFIG or config/chartmonitor.yaml)")
	limit := flag.Int("limit", 0, "print at most N symbols (0 = all)")
	flag.Parse()

	cfg := loadConfig(*cfgPath)
	logger := util.NewLogger("error", "text") // keep store noise out of the table
	rs := results.NewStore(cfg.Storage.ResultsPath, logger)

	if symbol := flag.Arg(0); symbol != "" {
		printSymbol(rs, strings.ToUpper(symbol))
		return
	}
	printTable(rs, *limit)
}

func printTable(rs *results.Store, limit int) {
	snapshot := rs.Snapshot()
	if len(snapshot) == 0 {
		fmt.Println("no results stored yet, run a backtest first")
		return
	}
	if limit > 0 && len(snapshot) > limit {
		snapshot = snapshot[:limit]
	}

	fmt.Printf("=== backtest results (%d symbols) ===\n\n", len(snapshot))
	fmt.Printf("%-8s %8s %-9s %-5s %-14s %7s %7s\n",
		"SYMBOL", "OVERALL", "RETESTED", "TF", "STRATEGY", "WIN%", "TRADES")

	for _, res := range snapshot {
		tf, best, ok := bestTimeframe(res)
		if !ok {
			fmt.Printf("%-8s %7.1f%% %-9s %-5s %-14s %7s %7s\n",
				res.Symbol, res.OverallWinRate, res.Retested, "-", "-", "-", "-")
			continue
		}
		fmt.Printf("%-8s %7.1f%% %-9s %-5s %-14s %6.1f%% %7d\n",
			res.Symbol, res.OverallWinRate, res.Retested, tf, best.Strategy, best.WinRate, best.Trades)
	}
}

func printSymbol(rs *results.Store, symbol string) {
	res, ok := rs.Get(symbol)
	if !ok {
		log.Fatalf("no result stored for %s", symbol)
	}

	fmt.Printf("=== %s (%s)  overall %.1f%%  retested=%s ===\n\n",
		res.Symbol, res.Name, res.OverallWinRate, res.Retested)
	fmt.Printf("%-5s %-14s %7s %6s %6s %7s %8s %7s\n",
		"TF", "STRATEGY", "TRADES", "WINS", "LOSSES", "WIN%", "AVGDUR", "AVGRR")

	for _, tf := range domain.Timeframes() {
		entry, ok := res.Timeframes[tf]
		if !ok {
			continue
		}
		if entry.Strategy == "" {
			fmt.Printf("%-5s %-14s\n", tf, "(no winner)")
			continue
		}
		fmt.Printf("%-5s %-14s %7d %6d %6d %6.1f%% %8.1f %7.2f\n",
			tf, entry.Strategy, entry.Trades, entry.Wins, entry.Losses,
			entry.WinRate, entry.AvgDuration, entry.AvgRR)
	}
}

// bestTimeframe picks the timeframe with the highest recorded win rate,
// ignoring entries without a winning strategy.
func bestTimeframe(res results.SymbolResult) (domain.Timeframe, results.TimeframeResult, bool) {
	var (
		bestTF domain.Timeframe
		best   results.TimeframeResult
		found  bool
	)
	for _, tf := range domain.Timeframes() {
		entry, ok := res.Timeframes[tf]
		if !ok || entry.Strategy == "" {
			continue
		}
		if !found || entry.WinRate > best.WinRate {
			bestTF, best, found = tf, entry, true
		}
	}
	return bestTF, best, found
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
	return cfg
}
