// Package backtest implements the strategy backtest and selection engine: a
// trade simulator that walks candle series, an aggregator that picks the best
// strategy per timeframe, and a scheduler that drives the symbol universe
// through both with bounded concurrency.
package backtest

import (
	"math"

	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/indicator"
	"github.com/nicholaslpollard/ChartMonitor/internal/strategy"
)

// rrEpsilon floors the risk denominator so reward:risk stays finite when a
// trade never moved against its entry.
const rrEpsilon = 0.01

// Params holds the simulation policy constants.
type Params struct {
	InitialBalance float64
	RiskFraction   float64
	MinRiskAmount  float64
	StopFactor     float64
	TargetFactor   float64
	LockFactor     float64
	ATRPeriod      int
	WarmupBars     int
	LookbackBars   int
	MaxHoldBars    int
	CooldownBars   int
}

// DefaultParams returns the standard simulation policy.
func DefaultParams() Params {
	return Params{
		InitialBalance: 10000,
		RiskFraction:   0.02,
		MinRiskAmount:  25,
		StopFactor:     1.5,
		TargetFactor:   3.0,
		LockFactor:     2.5,
		ATRPeriod:      14,
		WarmupBars:     25,
		LookbackBars:   30,
		MaxHoldBars:    12,
		CooldownBars:   5,
	}
}

// Stats summarizes all closed trades from one simulation run. A run with no
// trades yields the zero value.
type Stats struct {
	Trades      int
	Wins        int
	Losses      int
	WinRate     float64
	AvgDuration float64
	AvgRR       float64
}

// tradeOutcome captures one closed trade. Outcomes are accumulated only long
// enough to aggregate; individual trades are never persisted.
type tradeOutcome struct {
	profitLoss float64
	duration   int
	riskPct    float64
	rewardPct  float64
	rr         float64
}

// Simulator replays a candle series through one strategy and simulates the
// full position lifecycle for every signal: ATR-derived stop and target,
// risk-budgeted sizing, and a forward scan capped at a maximum holding
// horizon.
type Simulator struct {
	params Params
}

// NewSimulator creates a Simulator with the given policy constants.
func NewSimulator(params Params) *Simulator {
	return &Simulator{params: params}
}

// DefaultVolatility is the fallback volatility policy used when the ATR is
// unavailable or non-positive: one percent of the reference price.
func DefaultVolatility(price float64) float64 {
	return price * 0.01
}

// PositionSize returns the share count for a new position: the risk budget
// spread over the stop distance, capped by what the balance can buy at the
// entry price. The risk budget is the larger of balance×riskFraction and the
// minimum risk amount.
func PositionSize(balance, riskFraction, minRisk, stopDistance, entryPrice float64) float64 {
	riskBudget := math.Max(balance*riskFraction, minRisk)
	size := riskBudget / stopDistance
	if affordable := balance / entryPrice; affordable < size {
		size = affordable
	}
	return size
}

// Simulate walks the series one bar at a time, invoking the strategy on each
// eligible bar and playing out every signal to its exit. The higher series is
// handed to the strategy untouched for trend context. Entries and exits both
// happen on closes. Once the balance is ruined (≤ 0) no further positions
// open, but the walk continues to the end of the series.
func (s *Simulator) Simulate(series, higher []domain.Candle, strat strategy.Strategy) Stats {
	p := s.params
	if len(series) == 0 {
		return Stats{}
	}

	balance := p.InitialBalance
	ruined := false
	lastTradeIndex := -p.CooldownBars
	nextEligible := 0

	prices := make([]float64, 0, p.LookbackBars)
	candles := make([]domain.Candle, 0, p.LookbackBars)
	volumes := make([]float64, 0, p.LookbackBars)

	var outcomes []tradeOutcome

	for i, c := range series {
		prices = rollAppend(prices, c.Close, p.LookbackBars)
		candles = rollAppend(candles, c, p.LookbackBars)
		volumes = rollAppend(volumes, c.Volume, p.LookbackBars)

		if i < p.WarmupBars || i < nextEligible || ruined {
			continue
		}
		if i-lastTradeIndex < p.CooldownBars {
			continue
		}

		sig := strat.Evaluate(strategy.Window{
			Prices:         prices,
			Candles:        candles,
			Volumes:        volumes,
			Higher:         higher,
			Index:          i,
			LastTradeIndex: lastTradeIndex,
			Cooldown:       p.CooldownBars,
		})
		if sig == nil {
			continue
		}

		long := sig.Direction == domain.DirectionLong
		entryPrice := c.Close

		atr := indicator.ATR(candles, p.ATRPeriod)
		if math.IsNaN(atr) || atr <= 0 {
			atr = DefaultVolatility(entryPrice)
		}
		stopDistance := atr * p.StopFactor
		targetDistance := atr * p.TargetFactor
		lockThreshold := atr * p.LockFactor

		size := PositionSize(balance, p.RiskFraction, p.MinRiskAmount, stopDistance, entryPrice)

		var stop, target float64
		if long {
			stop = entryPrice - stopDistance
			target = entryPrice + targetDistance
		} else {
			stop = entryPrice + stopDistance
			target = entryPrice - targetDistance
		}

		// Capital is locked for the life of the trade.
		balance -= size * entryPrice

		exitIdx := i
		exitPrice := entryPrice
		worst := entryPrice
		pnl := 0.0

		end := i + p.MaxHoldBars
		if last := len(series) - 1; end > last {
			end = last
		}
		for j := i + 1; j <= end; j++ {
			px := series[j].Close
			if j == i+1 {
				worst = px
			} else if long && px < worst {
				worst = px
			} else if !long && px > worst {
				worst = px
			}

			exitIdx = j
			exitPrice = px
			if long {
				pnl = size * (px - entryPrice)
			} else {
				pnl = size * (entryPrice - px)
			}

			if long && px <= stop || !long && px >= stop {
				break
			}
			if long && px >= target || !long && px <= target {
				break
			}
			if pnl > size*lockThreshold {
				break
			}
		}

		balance += size*entryPrice + pnl
		if balance <= 0 {
			ruined = true
		}

		var riskPct, rewardPct float64
		if long {
			riskPct = (entryPrice - worst) / entryPrice * 100
			rewardPct = (exitPrice - entryPrice) / entryPrice * 100
		} else {
			riskPct = (worst - entryPrice) / entryPrice * 100
			rewardPct = (entryPrice - exitPrice) / entryPrice * 100
		}

		outcomes = append(outcomes, tradeOutcome{
			profitLoss: pnl,
			duration:   exitIdx - i,
			riskPct:    riskPct,
			rewardPct:  rewardPct,
			rr:         rewardPct / math.Max(riskPct, rrEpsilon),
		})

		lastTradeIndex = i
		nextEligible = exitIdx + 1
	}

	return summarize(outcomes)
}

// summarize reduces closed trades to aggregate statistics.
func summarize(outcomes []tradeOutcome) Stats {
	if len(outcomes) == 0 {
		return Stats{}
	}

	st := Stats{Trades: len(outcomes)}
	var sumDuration, sumRR float64
	for _, o := range outcomes {
		if o.profitLoss > 0 {
			st.Wins++
		} else {
			st.Losses++
		}
		sumDuration += float64(o.duration)
		sumRR += o.rr
	}
	st.WinRate = float64(st.Wins) / float64(st.Trades) * 100
	st.AvgDuration = sumDuration / float64(st.Trades)
	st.AvgRR = sumRR / float64(st.Trades)
	return st
}

// rollAppend appends v and trims the front so the window never exceeds limit.
func rollAppend[T any](window []T, v T, limit int) []T {
	window = append(window, v)
	if len(window) > limit {
		window = window[1:]
	}
	return window
}
