package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
)

// Compile-time interface check.
var _ SeriesStore = (*ParquetStore)(nil)

// ParquetStore implements SeriesStore using one Parquet file per
// (timeframe, symbol) pair on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record type (on-disk schema)
// ---------------------------------------------------------------------------

// CandleRecord is the Parquet schema for candle data.
type CandleRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// ---------------------------------------------------------------------------
// SeriesStore implementation
// ---------------------------------------------------------------------------

// LoadSeries reads the candle series for a symbol and timeframe. A missing
// file yields an empty series.
func (s *ParquetStore) LoadSeries(_ context.Context, symbol string, tf domain.Timeframe) ([]domain.Candle, error) {
	path := s.seriesPath(symbol, tf)

	records, err := readParquetFile[CandleRecord](path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading series %s/%s: %w", tf, symbol, err)
	}

	candles := make([]domain.Candle, 0, len(records))
	for _, r := range records {
		candles = append(candles, domain.Candle{
			Timestamp: time.UnixMilli(r.Timestamp),
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		})
	}
	return candles, nil
}

// WriteSeries merges candles into the stored series for a symbol and
// timeframe, deduplicating by timestamp with new candles winning.
func (s *ParquetStore) WriteSeries(_ context.Context, symbol string, tf domain.Timeframe, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	incoming := make([]CandleRecord, 0, len(candles))
	for _, c := range candles {
		incoming = append(incoming, CandleRecord{
			Timestamp: c.Timestamp.UnixMilli(),
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}

	path := s.seriesPath(symbol, tf)

	// Read existing records to merge.
	existing, err := readParquetFile[CandleRecord](path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading existing series %s/%s: %w", tf, symbol, err)
	}
	merged := mergeCandleRecords(existing, incoming)

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing series %s/%s: %w", tf, symbol, err)
	}
	return nil
}

// ListSymbols lists all symbols that have candle data for the timeframe.
func (s *ParquetStore) ListSymbols(_ context.Context, tf domain.Timeframe) ([]string, error) {
	dir := filepath.Join(s.DataDir, "candles", string(tf))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		symbols = append(symbols, strings.TrimSuffix(e.Name(), ".parquet"))
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ---------------------------------------------------------------------------
// Path and file helpers
// ---------------------------------------------------------------------------

// seriesPath returns the filesystem path for a candle series file.
// Layout: <dataDir>/candles/<timeframe>/<SYMBOL>.parquet
func (s *ParquetStore) seriesPath(symbol string, tf domain.Timeframe) string {
	return filepath.Join(s.DataDir, "candles", string(tf), strings.ToUpper(symbol)+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeCandleRecords deduplicates candle records by timestamp, preferring
// incoming records over existing ones. Results are sorted ascending.
func mergeCandleRecords(existing, incoming []CandleRecord) []CandleRecord {
	seen := make(map[int64]CandleRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]CandleRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
