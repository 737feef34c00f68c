// Package builtins provides built-in strategy implementations that ship with
// the chartmonitor platform.
package builtins

import (
	"github.com/nicholaslpollard/ChartMonitor/internal/strategy"
)

// Register adds every built-in strategy to the registry with its default
// parameters. Registration order is fixed so performance tie-breaks are
// stable across runs.
func Register(r *strategy.Registry) {
	r.Register(NewSMACross(9, 21))
	r.Register(NewRSIReversal(14))
	r.Register(NewBreakout(20))
	r.Register(NewTrendFollow(9, 20))
}
