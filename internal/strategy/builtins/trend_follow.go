package builtins

import (
	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/indicator"
	"github.com/nicholaslpollard/ChartMonitor/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*TrendFollow)(nil)

// TrendFollow trades momentum resumptions in the direction of the higher
// timeframe. The higher series establishes the trend via its own SMA; an
// entry fires when price reclaims the fast SMA on the working timeframe in
// that direction.
type TrendFollow struct {
	fastPeriod  int
	trendPeriod int
}

// NewTrendFollow creates a TrendFollow strategy with the given fast SMA
// period (working timeframe) and trend SMA period (higher timeframe).
func NewTrendFollow(fast, trend int) *TrendFollow {
	return &TrendFollow{
		fastPeriod:  fast,
		trendPeriod: trend,
	}
}

// Name returns "trend-follow".
func (s *TrendFollow) Name() string {
	return "trend-follow"
}

// Evaluate requires an established higher-timeframe trend and a fast SMA
// reclaim on the current bar in the same direction.
func (s *TrendFollow) Evaluate(w strategy.Window) *domain.Signal {
	if len(w.Prices) < s.fastPeriod+1 || len(w.Higher) < s.trendPeriod {
		return nil
	}

	higherCloses := make([]float64, len(w.Higher))
	for i, c := range w.Higher {
		higherCloses[i] = c.Close
	}
	trendSMA := indicator.SMA(higherCloses, s.trendPeriod)
	lastHigher := higherCloses[len(higherCloses)-1]

	cur := w.Prices[len(w.Prices)-1]
	prev := w.Prices[len(w.Prices)-2]
	curFast := indicator.SMA(w.Prices, s.fastPeriod)
	prevFast := indicator.SMA(w.Prices[:len(w.Prices)-1], s.fastPeriod)

	if lastHigher > trendSMA && prev <= prevFast && cur > curFast {
		return &domain.Signal{Direction: domain.DirectionLong, Note: "fast SMA reclaim in higher-timeframe uptrend"}
	}
	if lastHigher < trendSMA && prev >= prevFast && cur < curFast {
		return &domain.Signal{Direction: domain.DirectionShort, Note: "fast SMA loss in higher-timeframe downtrend"}
	}
	return nil
}
