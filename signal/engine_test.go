package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/fxbot/market"
)

func candlesFromCloses(closes []float64) []market.Candle {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{
			Time:  start.Add(time.Duration(i) * time.Hour),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}
	return out
}

// crossSeries builds a window where the short SMA crosses above the long SMA
// exactly once, on the final bar.
func crossSeries(e *Engine) []float64 {
	closes := make([]float64, 0, e.LongMA+2)
	// Long stretch of declining prices keeps short SMA below long SMA.
	price := 1.2000
	for i := 0; i < e.LongMA+1; i++ {
		closes = append(closes, price)
		price -= 0.0010
	}
	// One sharp rally bar drags the short SMA above the long SMA.
	closes = append(closes, price+0.2000)
	return closes
}

func TestMACrossFiresOncePerCrossing(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	e.ShortMA, e.LongMA = 3, 5

	closes := crossSeries(e)

	s := e.Compute(candlesFromCloses(closes))[FamilyMACross]
	assert.Equal(t, Long, s.Direction)
	assert.Equal(t, 1.0, s.Strength)

	// Next bar: still crossed, no new cross, no signal.
	closes = append(closes, closes[len(closes)-1]+0.0001)
	s = e.Compute(candlesFromCloses(closes))[FamilyMACross]
	assert.Equal(t, Neutral, s.Direction)
	assert.Zero(t, s.Strength)
}

func TestShortWindowIsNeutralNotError(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	set := e.Compute(candlesFromCloses([]float64{1.1, 1.2}))

	for _, family := range []string{FamilyMACross, FamilyRSI, FamilyBollinger, FamilyChannel} {
		s := set[family]
		assert.Equal(t, Neutral, s.Direction, family)
		assert.Zero(t, s.Strength, family)
	}
}

func TestRSISignals(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	e.RSIPeriod = 4

	// Strictly falling closes: RSI 0 -> Long at full strength.
	s := e.Compute(candlesFromCloses([]float64{1.5, 1.4, 1.3, 1.2, 1.1}))[FamilyRSI]
	assert.Equal(t, Long, s.Direction)
	assert.InDelta(t, 1.0, s.Strength, 1e-9)

	// Strictly rising closes: RSI 100 -> Short at full strength.
	s = e.Compute(candlesFromCloses([]float64{1.1, 1.2, 1.3, 1.4, 1.5}))[FamilyRSI]
	assert.Equal(t, Short, s.Direction)
	assert.InDelta(t, 1.0, s.Strength, 1e-9)

	// A moderate oversold reading (one gain, three equal losses: RSI 25)
	// triggers at full strength too; strength does not scale with depth.
	s = e.Compute(candlesFromCloses([]float64{1.30, 1.35, 1.30, 1.25, 1.20}))[FamilyRSI]
	assert.Equal(t, Long, s.Direction)
	assert.InDelta(t, 1.0, s.Strength, 1e-9)
	assert.Less(t, s.Values["rsi"], e.Oversold)
	assert.Greater(t, s.Values["rsi"], 20.0)
}

func TestChannelBreakout(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	e.ChannelPeriod = 3

	flat := []float64{1.1000, 1.1000, 1.1000}

	// Close above resistance plus buffer.
	s := e.Compute(candlesFromCloses(append(flat, 1.1020)))[FamilyChannel]
	assert.Equal(t, Long, s.Direction)

	// Inside the buffer: no breakout.
	s = e.Compute(candlesFromCloses(append(flat, 1.1005)))[FamilyChannel]
	assert.Equal(t, Neutral, s.Direction)
}
