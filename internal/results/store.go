// Package results persists per-symbol backtest outcomes as a single JSON
// collection, tracking a retested flag so interrupted passes can resume.
package results

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
)

// TimeframeResult holds the winning strategy's statistics for one
// (symbol, timeframe) pair.
type TimeframeResult struct {
	Strategy    string  `json:"strategy"`
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"winRate"`
	AvgDuration float64 `json:"avgDuration"`
	AvgRR       float64 `json:"avgRR"`
}

// SymbolResult is the persisted record for one symbol: the best strategy per
// timeframe plus the unweighted mean win rate across timeframes. Retested is
// "yes" once the symbol has been reprocessed in the current cycle.
type SymbolResult struct {
	Symbol         string                               `json:"symbol"`
	Name           string                               `json:"name"`
	OverallWinRate float64                              `json:"overallWinRate"`
	Timeframes     map[domain.Timeframe]TimeframeResult `json:"timeframes"`
	Retested       string                               `json:"retested"`
}

// Store holds symbol results in memory with JSON persistence. The collection
// keeps insertion order until SortAndFlush imposes the final ranking.
type Store struct {
	mu       sync.RWMutex
	entries  []SymbolResult
	index    map[string]int // symbol -> position in entries
	filePath string
	log      *slog.Logger
}

// NewStore creates a Store, loading persisted state from filePath. A missing
// file is not an error; the store starts empty.
func NewStore(filePath string, log *slog.Logger) *Store {
	s := &Store{
		index:    make(map[string]int),
		filePath: filePath,
		log:      log,
	}
	s.load()
	return s
}

// Upsert inserts or replaces the entry for res.Symbol and rewrites the whole
// persisted collection. It reports "new" when the symbol was not present
// (stored with retested "no") and "yes" when an existing entry was replaced
// (stored with retested "yes"). A write error is returned and must abort the
// run; the on-disk collection is no longer in sync with memory.
func (s *Store) Upsert(res SymbolResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := "new"
	if i, ok := s.index[res.Symbol]; ok {
		res.Retested = "yes"
		s.entries[i] = res
		status = "yes"
	} else {
		res.Retested = "no"
		s.index[res.Symbol] = len(s.entries)
		s.entries = append(s.entries, res)
	}

	if err := s.flush(); err != nil {
		return status, err
	}
	return status, nil
}

// RetestedSymbols returns the set of symbols whose entries are already
// flagged retested. The scheduler skips these on resume.
func (s *Store) RetestedSymbols() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	skip := make(map[string]struct{})
	for _, e := range s.entries {
		if e.Retested == "yes" {
			skip[e.Symbol] = struct{}{}
		}
	}
	return skip
}

// ResetRetested clears every entry's retested flag and rewrites the
// collection, opening a fresh retest cycle in which no symbol is skipped.
func (s *Store) ResetRetested() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		s.entries[i].Retested = "no"
	}
	return s.flush()
}

// SortAndFlush orders the collection by overall win rate descending and
// performs one full rewrite. Symbols with equal win rates keep their
// relative order.
func (s *Store) SortAndFlush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].OverallWinRate > s.entries[j].OverallWinRate
	})
	for i, e := range s.entries {
		s.index[e.Symbol] = i
	}
	return s.flush()
}

// Get returns a copy of the entry for symbol. The second return value
// indicates whether the symbol was found.
func (s *Store) Get(symbol string) (SymbolResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[symbol]
	if !ok {
		return SymbolResult{}, false
	}
	return copyResult(s.entries[i]), true
}

// Snapshot returns a deep copy of all entries in their current order.
func (s *Store) Snapshot() []SymbolResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SymbolResult, len(s.entries))
	for i, e := range s.entries {
		out[i] = copyResult(e)
	}
	return out
}

// Len reports the number of persisted symbols.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// load reads the JSON file into memory.
func (s *Store) load() {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return // no file yet, start empty
	}
	var loaded []SymbolResult
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.log.Warn("loading results file", "path", s.filePath, "error", err)
		return
	}
	s.entries = loaded
	for i, e := range loaded {
		s.index[e.Symbol] = i
	}
	s.log.Info("loaded results", "symbols", len(loaded))
}

// flush writes the in-memory collection to disk. Must be called with mu held.
func (s *Store) flush() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("marshalling results: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return fmt.Errorf("writing results file: %w", err)
	}
	return nil
}

// copyResult returns a copy of e with its timeframe map duplicated.
func copyResult(e SymbolResult) SymbolResult {
	out := e
	out.Timeframes = make(map[domain.Timeframe]TimeframeResult, len(e.Timeframes))
	for tf, tr := range e.Timeframes {
		out.Timeframes[tf] = tr
	}
	return out
}
