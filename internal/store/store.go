// Package store persists candle series and exposes the read interface the
// backtest engine consumes.
package store

import (
	"context"

	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
)

// SeriesStore persists and retrieves OHLCV candle series keyed by symbol and
// timeframe.
type SeriesStore interface {
	// LoadSeries returns the stored series for the given symbol and
	// timeframe, ascending by timestamp and deduplicated. A symbol with no
	// stored data yields an empty series, not an error.
	LoadSeries(ctx context.Context, symbol string, tf domain.Timeframe) ([]domain.Candle, error)

	// WriteSeries merges a batch of candles into the stored series.
	WriteSeries(ctx context.Context, symbol string, tf domain.Timeframe, candles []domain.Candle) error

	// ListSymbols returns all distinct symbols with data for the timeframe.
	ListSymbols(ctx context.Context, tf domain.Timeframe) ([]string, error)
}
