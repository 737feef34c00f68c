package builtins

import (
	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/indicator"
	"github.com/nicholaslpollard/ChartMonitor/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*RSIReversal)(nil)

// RSIReversal signals a mean-reversion entry when the RSI reaches an extreme:
// long below 30 (oversold) and short above 70 (overbought).
type RSIReversal struct {
	period int
}

// NewRSIReversal creates an RSIReversal strategy with the given RSI period.
func NewRSIReversal(period int) *RSIReversal {
	return &RSIReversal{period: period}
}

// Name returns "rsi-reversal".
func (s *RSIReversal) Name() string {
	return "rsi-reversal"
}

// Evaluate checks whether the RSI on the current bar sits in oversold or
// overbought territory.
func (s *RSIReversal) Evaluate(w strategy.Window) *domain.Signal {
	if len(w.Prices) < s.period+1 {
		return nil
	}

	rsi := indicator.RSI(w.Prices, s.period)
	switch {
	case rsi < 30:
		return &domain.Signal{Direction: domain.DirectionLong, Note: "RSI oversold"}
	case rsi > 70:
		return &domain.Signal{Direction: domain.DirectionShort, Note: "RSI overbought"}
	}
	return nil
}
