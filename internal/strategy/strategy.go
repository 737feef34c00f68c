// Package strategy defines the Strategy interface for trading strategies and
// provides a Registry for managing multiple strategy implementations.
package strategy

import (
	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
)

// Window is the slice of market state a strategy sees when it is asked to
// evaluate a single bar. Prices, Candles and Volumes cover the same trailing
// stretch of the series, oldest first, with the bar under evaluation last.
// Higher carries the full series of the next timeframe up, for strategies
// that confirm against a broader trend.
type Window struct {
	Prices  []float64
	Candles []domain.Candle
	Volumes []float64
	Higher  []domain.Candle

	// Index is the position of the bar under evaluation in the full series.
	Index int

	// LastTradeIndex is the position of the most recent entry, or a negative
	// value when no trade has been taken yet.
	LastTradeIndex int

	// Cooldown is the minimum number of bars required between entries.
	Cooldown int
}

// Strategy is the interface that all trading strategies must implement.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Evaluate inspects the window and returns a signal, or nil when the
	// strategy sees no setup on the current bar. Implementations must be
	// pure: no retained state between calls.
	Evaluate(w Window) *domain.Signal
}

// Registry holds a named collection of strategies for lookup and enumeration.
// Iteration order is registration order, so tie-breaks between strategies
// with identical performance are reproducible across runs.
type Registry struct {
	names      []string
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name(). Registering
// a name twice replaces the implementation but keeps its original position.
func (r *Registry) Register(s Strategy) {
	name := s.Name()
	if _, ok := r.strategies[name]; !ok {
		r.names = append(r.names, name)
	}
	r.strategies[name] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// All returns every registered strategy in registration order.
func (r *Registry) All() []Strategy {
	out := make([]Strategy, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.strategies[name])
	}
	return out
}

// List returns all registered strategy names in registration order.
func (r *Registry) List() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Len reports the number of registered strategies.
func (r *Registry) Len() int {
	return len(r.names)
}
