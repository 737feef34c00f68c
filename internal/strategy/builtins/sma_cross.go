package builtins

import (
	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/indicator"
	"github.com/nicholaslpollard/ChartMonitor/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy. It signals
// long when the short-period SMA crosses above the long-period SMA on the
// current bar, and short when it crosses below.
type SMACross struct {
	shortPeriod int
	longPeriod  int
}

// NewSMACross creates a new SMACross strategy with the specified short and
// long moving average periods.
func NewSMACross(short, long int) *SMACross {
	return &SMACross{
		shortPeriod: short,
		longPeriod:  long,
	}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// Evaluate detects a crossover between the two SMAs on the current bar.
func (s *SMACross) Evaluate(w strategy.Window) *domain.Signal {
	// One extra price is needed to compare against the previous bar's SMAs.
	if len(w.Prices) < s.longPeriod+1 {
		return nil
	}

	prev := w.Prices[:len(w.Prices)-1]
	curShort := indicator.SMA(w.Prices, s.shortPeriod)
	curLong := indicator.SMA(w.Prices, s.longPeriod)
	prevShort := indicator.SMA(prev, s.shortPeriod)
	prevLong := indicator.SMA(prev, s.longPeriod)

	if prevShort <= prevLong && curShort > curLong {
		return &domain.Signal{Direction: domain.DirectionLong, Note: "short SMA crossed above long SMA"}
	}
	if prevShort >= prevLong && curShort < curLong {
		return &domain.Signal{Direction: domain.DirectionShort, Note: "short SMA crossed below long SMA"}
	}
	return nil
}
