package builtins

import (
	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/indicator"
	"github.com/nicholaslpollard/ChartMonitor/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Breakout)(nil)

// Breakout signals when the current close escapes the range of the preceding
// bars on above-average volume: long above the prior high, short below the
// prior low. The volume filter screens out thin-tape false breaks.
type Breakout struct {
	period int
}

// NewBreakout creates a Breakout strategy over the given range period.
func NewBreakout(period int) *Breakout {
	return &Breakout{period: period}
}

// Name returns "breakout".
func (s *Breakout) Name() string {
	return "breakout"
}

// Evaluate compares the current close against the high/low of the preceding
// range, requiring volume above its average over the same stretch.
func (s *Breakout) Evaluate(w strategy.Window) *domain.Signal {
	// The current bar is excluded from the range it has to break.
	if len(w.Candles) < s.period+1 || len(w.Volumes) < s.period+1 {
		return nil
	}

	prior := w.Candles[:len(w.Candles)-1]
	highs := make([]float64, len(prior))
	lows := make([]float64, len(prior))
	for i, c := range prior {
		highs[i] = c.High
		lows[i] = c.Low
	}

	rangeHigh := indicator.Highest(highs, s.period)
	rangeLow := indicator.Lowest(lows, s.period)

	curVolume := w.Volumes[len(w.Volumes)-1]
	avgVolume := indicator.SMA(w.Volumes[:len(w.Volumes)-1], s.period)
	if curVolume <= avgVolume {
		return nil
	}

	close := w.Candles[len(w.Candles)-1].Close
	if close > rangeHigh {
		return &domain.Signal{Direction: domain.DirectionLong, Note: "range breakout on volume"}
	}
	if close < rangeLow {
		return &domain.Signal{Direction: domain.DirectionShort, Note: "range breakdown on volume"}
	}
	return nil
}
