package store

import (
	"context"
	"sort"
	"sync"

	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
)

// Compile-time interface check.
var _ SeriesStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory SeriesStore used in tests and dry runs.
type MemoryStore struct {
	mu     sync.RWMutex
	series map[seriesKey][]domain.Candle
}

type seriesKey struct {
	symbol string
	tf     domain.Timeframe
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		series: make(map[seriesKey][]domain.Candle),
	}
}

// LoadSeries returns a copy of the stored series, ascending by timestamp.
func (s *MemoryStore) LoadSeries(_ context.Context, symbol string, tf domain.Timeframe) ([]domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.series[seriesKey{symbol, tf}]
	if len(stored) == 0 {
		return nil, nil
	}
	out := make([]domain.Candle, len(stored))
	copy(out, stored)
	return out, nil
}

// WriteSeries merges candles into the stored series, deduplicating by
// timestamp with new candles winning.
func (s *MemoryStore) WriteSeries(_ context.Context, symbol string, tf domain.Timeframe, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey{symbol, tf}
	byTS := make(map[int64]domain.Candle)
	for _, c := range s.series[key] {
		byTS[c.Timestamp.UnixMilli()] = c
	}
	for _, c := range candles {
		byTS[c.Timestamp.UnixMilli()] = c
	}

	merged := make([]domain.Candle, 0, len(byTS))
	for _, c := range byTS {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	s.series[key] = merged
	return nil
}

// ListSymbols returns all symbols with data for the timeframe, sorted.
func (s *MemoryStore) ListSymbols(_ context.Context, tf domain.Timeframe) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var symbols []string
	for key := range s.series {
		if key.tf == tf {
			symbols = append(symbols, key.symbol)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}
