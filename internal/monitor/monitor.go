// Package monitor runs the live pass of the pipeline: for every symbol with a
// persisted backtest result it evaluates the symbol's best strategy once on
// the freshest stored candles and raises an alert when the strategy signals.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/journal"
	"github.com/nicholaslpollard/ChartMonitor/internal/notify"
	"github.com/nicholaslpollard/ChartMonitor/internal/results"
	"github.com/nicholaslpollard/ChartMonitor/internal/store"
	"github.com/nicholaslpollard/ChartMonitor/internal/strategy"
)

// Options tunes the live pass.
type Options struct {
	// MinWinRate is the floor a symbol's best historical win rate must clear
	// before its strategy is evaluated live.
	MinWinRate float64

	// Lookback is the number of trailing bars handed to the strategy,
	// matching the window the backtest evaluated it on.
	Lookback int

	// Cooldown seeds the window's trade-spacing fields. The live pass holds
	// no position state, so the window always looks immediately tradable.
	Cooldown int
}

// Monitor evaluates winning strategies against fresh data and emits alerts.
type Monitor struct {
	results  *results.Store
	series   store.SeriesStore
	registry *strategy.Registry
	journal  *journal.Journal
	notifier notify.Notifier
	opts     Options
	log      *slog.Logger
}

// New wires a monitor over the persisted results and candle store.
func New(res *results.Store, series store.SeriesStore, registry *strategy.Registry, jrnl *journal.Journal, notifier notify.Notifier, opts Options, log *slog.Logger) *Monitor {
	if opts.Lookback <= 0 {
		opts.Lookback = 30
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 5
	}
	return &Monitor{
		results:  res,
		series:   series,
		registry: registry,
		journal:  jrnl,
		notifier: notifier,
		opts:     opts,
		log:      log.With("component", "monitor"),
	}
}

// Run walks every persisted symbol result once and returns the number of
// alerts raised. Per-symbol problems are logged and skipped; only context
// cancellation aborts the pass.
func (m *Monitor) Run(ctx context.Context) (int, error) {
	snapshot := m.results.Snapshot()
	m.log.Info("starting live pass", "symbols", len(snapshot))

	var alerts int
	for _, res := range snapshot {
		if err := ctx.Err(); err != nil {
			return alerts, fmt.Errorf("live pass interrupted: %w", err)
		}
		if m.check(ctx, res) {
			alerts++
		}
	}

	m.log.Info("live pass complete", "symbols", len(snapshot), "alerts", alerts)
	return alerts, nil
}

// check evaluates one symbol and reports whether an alert was raised.
func (m *Monitor) check(ctx context.Context, res results.SymbolResult) bool {
	tf, best, ok := bestTimeframe(res)
	if !ok {
		m.log.Debug("no winning strategy on record", "symbol", res.Symbol)
		return false
	}
	if best.WinRate < m.opts.MinWinRate {
		m.log.Debug("best win rate below floor",
			"symbol", res.Symbol,
			"strategy", best.Strategy,
			"winRate", fmt.Sprintf("%.1f", best.WinRate),
		)
		return false
	}

	strat, ok := m.registry.Get(best.Strategy)
	if !ok {
		m.log.Warn("stored strategy no longer registered", "symbol", res.Symbol, "strategy", best.Strategy)
		return false
	}

	series, err := m.series.LoadSeries(ctx, res.Symbol, tf)
	if err != nil {
		m.log.Warn("load series failed", "symbol", res.Symbol, "timeframe", tf, "error", err)
		return false
	}
	if len(series) == 0 {
		m.log.Debug("no candles stored", "symbol", res.Symbol, "timeframe", tf)
		return false
	}

	higher, err := m.series.LoadSeries(ctx, res.Symbol, tf.Higher())
	if err != nil {
		m.log.Warn("load higher series failed", "symbol", res.Symbol, "timeframe", tf.Higher(), "error", err)
		higher = nil
	}

	sig := m.evaluate(res.Symbol, strat, m.window(series, higher))
	if sig == nil {
		return false
	}

	alert := domain.Alert{
		Symbol:    res.Symbol,
		Timeframe: tf,
		Strategy:  best.Strategy,
		Direction: sig.Direction,
		Price:     series[len(series)-1].Close,
		WinRate:   best.WinRate,
		CreatedAt: time.Now().UTC(),
	}

	if err := m.journal.InsertAlert(ctx, alert); err != nil {
		m.log.Error("journal alert failed", "symbol", alert.Symbol, "error", err)
	}
	if err := m.notifier.Send(ctx, alert); err != nil {
		m.log.Warn("alert delivery failed", "symbol", alert.Symbol, "error", err)
	}

	m.log.Info("alert",
		"symbol", alert.Symbol,
		"timeframe", alert.Timeframe,
		"strategy", alert.Strategy,
		"direction", alert.Direction,
		"price", alert.Price,
		"winRate", fmt.Sprintf("%.1f", alert.WinRate),
	)
	return true
}

// window builds the evaluation window over the freshest bars of the series.
func (m *Monitor) window(series, higher []domain.Candle) strategy.Window {
	start := 0
	if len(series) > m.opts.Lookback {
		start = len(series) - m.opts.Lookback
	}
	tail := series[start:]

	prices := make([]float64, len(tail))
	volumes := make([]float64, len(tail))
	for i, c := range tail {
		prices[i] = c.Close
		volumes[i] = c.Volume
	}

	return strategy.Window{
		Prices:         prices,
		Candles:        tail,
		Volumes:        volumes,
		Higher:         higher,
		Index:          len(series) - 1,
		LastTradeIndex: -m.opts.Cooldown,
		Cooldown:       m.opts.Cooldown,
	}
}

// evaluate runs the strategy once, absorbing panics so one bad strategy
// cannot take down the whole pass.
func (m *Monitor) evaluate(symbol string, strat strategy.Strategy, w strategy.Window) (sig *domain.Signal) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("strategy panic", "symbol", symbol, "strategy", strat.Name(), "panic", r)
			sig = nil
		}
	}()
	return strat.Evaluate(w)
}

// bestTimeframe picks the timeframe with the highest recorded win rate,
// ignoring entries without a winning strategy. Ties keep the earliest
// timeframe in declared processing order.
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
