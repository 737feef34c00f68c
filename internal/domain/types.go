// Package domain defines the shared data types used across the ChartMonitor
// pipeline: candles, timeframes, strategy signals, and alerts.
package domain

import (
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Timeframes
// ---------------------------------------------------------------------------

// Timeframe is a candle sampling interval.
type Timeframe string

const (
	TF15Min Timeframe = "15m"
	TF1Hour Timeframe = "1h"
	TF1Day  Timeframe = "1d"
	TF1Week Timeframe = "1w"
)

// Timeframes returns all timeframes in their declared processing order.
// Backtest runs and persisted results iterate in this order.
func Timeframes() []Timeframe {
	return []Timeframe{TF15Min, TF1Hour, TF1Day, TF1Week}
}

// Higher returns the next coarser timeframe, used when a strategy wants
// context from a slower series. The weekly timeframe is its own ceiling.
func (tf Timeframe) Higher() Timeframe {
	switch tf {
	case TF15Min:
		return TF1Hour
	case TF1Hour:
		return TF1Day
	case TF1Day:
		return TF1Week
	default:
		return TF1Week
	}
}

// ParseTimeframe converts a string like "15m" or "1d" into a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case TF15Min, TF1Hour, TF1Day, TF1Week:
		return Timeframe(s), nil
	}
	return "", fmt.Errorf("unknown timeframe %q", s)
}

// ParseTimeframes converts a list of timeframe strings, rejecting the whole
// list on the first unknown value.
func ParseTimeframes(ss []string) ([]Timeframe, error) {
	tfs := make([]Timeframe, 0, len(ss))
	for _, s := range ss {
		tf, err := ParseTimeframe(s)
		if err != nil {
			return nil, err
		}
		tfs = append(tfs, tf)
	}
	return tfs, nil
}

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// Candle is one OHLCV bar for a symbol at a given timeframe. Series are
// ordered by strictly increasing Timestamp and deduplicated; candles are
// immutable once loaded.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Instrument pairs a tradable symbol with its display name.
type Instrument struct {
	Symbol string
	Name   string
}

// ---------------------------------------------------------------------------
// Signals and alerts
// ---------------------------------------------------------------------------

// Direction is the side of a prospective trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Signal is the ephemeral output of a strategy evaluation. A nil *Signal
// means no trade. Signals are never persisted.
type Signal struct {
	Direction Direction
	Note      string
}

// Alert is an actionable live-monitoring event: the symbol's best strategy
// fired on fresh data. Alerts are journaled and pushed to the notifier.
type Alert struct {
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	Strategy  string    `json:"strategy"`
	Direction Direction `json:"direction"`
	Price     float64   `json:"price"`
	WinRate   float64   `json:"winRate"`
	CreatedAt time.Time `json:"createdAt"`
}
