// Package indicator implements the technical indicators consumed by the
// backtest engine and the built-in strategies.
package indicator

import (
	"math"

	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
)

// ATR returns the Average True Range: the arithmetic mean of the trailing
// `period` true ranges. The first candle's true range is its high-low span;
// later candles also account for gaps against the prior close. Returns NaN
// when the series is empty or the period is not positive, so callers can
// apply their own fallback policy.
func ATR(candles []domain.Candle, period int) float64 {
	if len(candles) == 0 || period <= 0 {
		return math.NaN()
	}

	trs := make([]float64, len(candles))
	trs[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		c := candles[i]
		prevClose := candles[i-1].Close
		tr := c.High - c.Low
		if hc := math.Abs(c.High - prevClose); hc > tr {
			tr = hc
		}
		if lc := math.Abs(c.Low - prevClose); lc > tr {
			tr = lc
		}
		trs[i] = tr
	}

	start := len(trs) - period
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, tr := range trs[start:] {
		sum += tr
	}
	return sum / float64(len(trs)-start)
}

// SMA returns the simple moving average of the last `period` values, or NaN
// when there are fewer values than the period.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// RSI computes the Wilder-smoothed Relative Strength Index over the given
// period. Requires at least period+1 values; returns the neutral 50 when
// data is insufficient.
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return 50.0
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// Highest returns the maximum of the last `period` values, or NaN when there
// are fewer values than the period.
func Highest(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	high := values[len(values)-period]
	for _, v := range values[len(values)-period:] {
		if v > high {
			high = v
		}
	}
	return high
}

// Lowest returns the minimum of the last `period` values, or NaN when there
// are fewer values than the period.
func Lowest(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	low := values[len(values)-period]
	for _, v := range values[len(values)-period:] {
		if v < low {
			low = v
		}
	}
	return low
}
