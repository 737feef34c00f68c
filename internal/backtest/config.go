package backtest

import (
	"time"

	"github.com/nicholaslpollard/ChartMonitor/internal/config"
)

// ParamsFromConfig maps the backtest configuration block onto simulation
// policy constants. Config defaults guarantee every field is set.
func ParamsFromConfig(bt config.BacktestConfig) Params {
	return Params{
		InitialBalance: bt.InitialBalance,
		RiskFraction:   bt.RiskFraction,
		MinRiskAmount:  bt.MinRiskAmount,
		StopFactor:     bt.StopFactor,
		TargetFactor:   bt.TargetFactor,
		LockFactor:     bt.LockFactor,
		ATRPeriod:      bt.ATRPeriod,
		WarmupBars:     bt.Warmup,
		LookbackBars:   bt.Lookback,
		MaxHoldBars:    bt.MaxHold,
		CooldownBars:   bt.Cooldown,
	}
}

// SchedulerOptionsFromConfig maps the scheduling tunables.
func SchedulerOptionsFromConfig(bt config.BacktestConfig) SchedulerOptions {
	return SchedulerOptions{
		Concurrency:     bt.Concurrency,
		RoundDelay:      time.Duration(bt.RoundDelayMS) * time.Millisecond,
		RequeueFailures: bt.RequeueFailures,
	}
}
