package backtest

import (
	"context"
	"log/slog"

	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/results"
	"github.com/nicholaslpollard/ChartMonitor/internal/store"
	"github.com/nicholaslpollard/ChartMonitor/internal/strategy"
)

// OverallFunc reduces the winning per-timeframe win rates to one overall
// score for a symbol.
type OverallFunc func(winRates []float64) float64

// UnweightedMean averages win rates without weighting by trade count. A
// timeframe with two trades counts as much as one with two hundred; this is
// the documented default scoring policy, not an oversight.
func UnweightedMean(winRates []float64) float64 {
	if len(winRates) == 0 {
		return 0
	}
	var sum float64
	for _, w := range winRates {
		sum += w
	}
	return sum / float64(len(winRates))
}

// Aggregator runs every registered strategy against every timeframe of a
// symbol and keeps the winner per timeframe: the strategy with the strictly
// highest win rate. When nothing beats a zero win rate the timeframe keeps
// an empty strategy name.
type Aggregator struct {
	// Overall scores the symbol from its winning per-timeframe win rates.
	// Defaults to UnweightedMean.
	Overall OverallFunc

	store      store.SeriesStore
	registry   *strategy.Registry
	sim        *Simulator
	timeframes []domain.Timeframe
	log        *slog.Logger
}

// NewAggregator creates an Aggregator reading candles from seriesStore and
// strategies from registry, evaluating the given timeframes in order.
func NewAggregator(
	seriesStore store.SeriesStore,
	registry *strategy.Registry,
	sim *Simulator,
	timeframes []domain.Timeframe,
	log *slog.Logger,
) *Aggregator {
	return &Aggregator{
		Overall:    UnweightedMean,
		store:      seriesStore,
		registry:   registry,
		sim:        sim,
		timeframes: timeframes,
		log:        log.With("component", "aggregator"),
	}
}

// SelectBest backtests symbol across all configured timeframes and returns
// its result record. Timeframes are always evaluated in their configured
// order so tie-breaks are reproducible.
func (a *Aggregator) SelectBest(ctx context.Context, symbol, name string) results.SymbolResult {
	res := results.SymbolResult{
		Symbol:     symbol,
		Name:       name,
		Timeframes: make(map[domain.Timeframe]results.TimeframeResult, len(a.timeframes)),
	}

	winRates := make([]float64, 0, len(a.timeframes))
	for _, tf := range a.timeframes {
		tr := a.bestForTimeframe(ctx, symbol, tf)
		res.Timeframes[tf] = tr
		winRates = append(winRates, tr.WinRate)
	}
	res.OverallWinRate = a.Overall(winRates)
	return res
}

// bestForTimeframe simulates every strategy over one timeframe's series and
// returns the winner. Load failures degrade to a zero result; they never
// abort the symbol.
func (a *Aggregator) bestForTimeframe(ctx context.Context, symbol string, tf domain.Timeframe) results.TimeframeResult {
	best := results.TimeframeResult{}

	series, err := a.store.LoadSeries(ctx, symbol, tf)
	if err != nil {
		a.log.Warn("loading series", "symbol", symbol, "timeframe", tf, "error", err)
		return best
	}

	higher, err := a.store.LoadSeries(ctx, symbol, tf.Higher())
	if err != nil {
		a.log.Warn("loading higher series", "symbol", symbol, "timeframe", tf.Higher(), "error", err)
		higher = nil
	}

	for _, strat := range a.registry.All() {
		stats := a.simulate(symbol, tf, series, higher, strat)
		if stats.WinRate > best.WinRate {
			best = results.TimeframeResult{
				Strategy:    strat.Name(),
				Trades:      stats.Trades,
				Wins:        stats.Wins,
				Losses:      stats.Losses,
				WinRate:     stats.WinRate,
				AvgDuration: stats.AvgDuration,
				AvgRR:       stats.AvgRR,
			}
		}
	}
	return best
}

// simulate runs one strategy over one series, absorbing panics so a single
// misbehaving strategy degrades to zero stats instead of killing the batch.
func (a *Aggregator) simulate(symbol string, tf domain.Timeframe, series, higher []domain.Candle, strat strategy.Strategy) (stats Stats) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("simulation panic",
				"symbol", symbol,
				"timeframe", tf,
				"strategy", strat.Name(),
				"panic", r,
			)
			stats = Stats{}
		}
	}()
	return a.sim.Simulate(series, higher, strat)
}
