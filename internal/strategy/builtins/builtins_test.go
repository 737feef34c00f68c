package builtins

import (
	"testing"
	"time"

	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/strategy"
)

// windowFromPrices builds a Window whose candles track the given closes with
// a constant volume.
func windowFromPrices(prices []float64, volume float64) strategy.Window {
	candles := make([]domain.Candle, len(prices))
	volumes := make([]float64, len(prices))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range prices {
		candles[i] = domain.Candle{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      p, High: p, Low: p, Close: p,
			Volume: volume,
		}
		volumes[i] = volume
	}
	return strategy.Window{
		Prices:  prices,
		Candles: candles,
		Volumes: volumes,
		Index:   len(prices) - 1,
	}
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSMACross(t *testing.T) {
	s := NewSMACross(9, 21)

	// 21 flat bars then a jump: the 9-bar SMA outruns the 21-bar SMA.
	up := append(repeat(100, 21), 110)
	sig := s.Evaluate(windowFromPrices(up, 1000))
	if sig == nil || sig.Direction != domain.DirectionLong {
		t.Errorf("rising cross: got %+v, want long signal", sig)
	}

	down := append(repeat(100, 21), 90)
	sig = s.Evaluate(windowFromPrices(down, 1000))
	if sig == nil || sig.Direction != domain.DirectionShort {
		t.Errorf("falling cross: got %+v, want short signal", sig)
	}

	if sig := s.Evaluate(windowFromPrices(repeat(100, 22), 1000)); sig != nil {
		t.Errorf("flat series: got %+v, want nil", sig)
	}

	if sig := s.Evaluate(windowFromPrices(repeat(100, 10), 1000)); sig != nil {
		t.Errorf("short series: got %+v, want nil", sig)
	}
}

func TestRSIReversal(t *testing.T) {
	s := NewRSIReversal(14)

	rising := make([]float64, 16)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	sig := s.Evaluate(windowFromPrices(rising, 1000))
	if sig == nil || sig.Direction != domain.DirectionShort {
		t.Errorf("monotonic rise: got %+v, want short (overbought)", sig)
	}

	falling := make([]float64, 16)
	for i := range falling {
		falling[i] = 100 - float64(i)
	}
	sig = s.Evaluate(windowFromPrices(falling, 1000))
	if sig == nil || sig.Direction != domain.DirectionLong {
		t.Errorf("monotonic fall: got %+v, want long (oversold)", sig)
	}

	// Alternating gains and losses keep the RSI near 50.
	choppy := make([]float64, 16)
	for i := range choppy {
		choppy[i] = 100 + float64(i%2)
	}
	if sig := s.Evaluate(windowFromPrices(choppy, 1000)); sig != nil {
		t.Errorf("choppy series: got %+v, want nil", sig)
	}

	if sig := s.Evaluate(windowFromPrices(rising[:10], 1000)); sig != nil {
		t.Errorf("short series: got %+v, want nil", sig)
	}
}

func TestBreakout(t *testing.T) {
	s := NewBreakout(20)

	// 20 range bars (high 101, low 99) then the bar under test.
	makeWindow := func(finalClose, finalVolume float64) strategy.Window {
		n := 21
		candles := make([]domain.Candle, n)
		prices := make([]float64, n)
		volumes := make([]float64, n)
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < n-1; i++ {
			candles[i] = domain.Candle{
				Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
				Open:      100, High: 101, Low: 99, Close: 100,
				Volume: 1000,
			}
			prices[i] = 100
			volumes[i] = 1000
		}
		candles[n-1] = domain.Candle{
			Timestamp: base.Add(time.Duration(n-1) * 24 * time.Hour),
			Open:      100, High: finalClose, Low: finalClose, Close: finalClose,
			Volume: finalVolume,
		}
		prices[n-1] = finalClose
		volumes[n-1] = finalVolume
		return strategy.Window{Prices: prices, Candles: candles, Volumes: volumes, Index: n - 1}
	}

	sig := s.Evaluate(makeWindow(102, 2000))
	if sig == nil || sig.Direction != domain.DirectionLong {
		t.Errorf("break above range: got %+v, want long", sig)
	}

	sig = s.Evaluate(makeWindow(98, 2000))
	if sig == nil || sig.Direction != domain.DirectionShort {
		t.Errorf("break below range: got %+v, want short", sig)
	}

	if sig := s.Evaluate(makeWindow(102, 1000)); sig != nil {
		t.Errorf("break without volume: got %+v, want nil", sig)
	}

	if sig := s.Evaluate(makeWindow(100.5, 2000)); sig != nil {
		t.Errorf("close inside range: got %+v, want nil", sig)
	}
}

func TestTrendFollow(t *testing.T) {
	s := NewTrendFollow(9, 20)

	higher := func(rising bool) []domain.Candle {
		out := make([]domain.Candle, 20)
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := range out {
			c := float64(i + 1)
			if !rising {
				c = float64(20 - i)
			}
			out[i] = domain.Candle{
				Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
				Open:      c, High: c, Low: c, Close: c,
				Volume: 1000,
			}
		}
		return out
	}

	// Price reclaims the fast SMA while the higher timeframe trends up.
	w := windowFromPrices(append(repeat(100, 9), 101), 1000)
	w.Higher = higher(true)
	sig := s.Evaluate(w)
	if sig == nil || sig.Direction != domain.DirectionLong {
		t.Errorf("reclaim in uptrend: got %+v, want long", sig)
	}

	// Same reclaim against a falling higher timeframe stays quiet.
	w.Higher = higher(false)
	if sig := s.Evaluate(w); sig != nil {
		t.Errorf("reclaim against downtrend: got %+v, want nil", sig)
	}

	w = windowFromPrices(append(repeat(100, 9), 99), 1000)
	w.Higher = higher(false)
	sig = s.Evaluate(w)
	if sig == nil || sig.Direction != domain.DirectionShort {
		t.Errorf("loss in downtrend: got %+v, want short", sig)
	}

	// No higher series means no trend context and no signal.
	w.Higher = nil
	if sig := s.Evaluate(w); sig != nil {
		t.Errorf("missing higher series: got %+v, want nil", sig)
	}
}

func TestRegisterOrder(t *testing.T) {
	r := strategy.NewRegistry()
	Register(r)

	want := []string{"sma-cross", "rsi-reversal", "breakout", "trend-follow"}
	got := r.List()
	if len(got) != len(want) {
		t.Fatalf("registered %d strategies, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("registry[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
