package signal

import (
	"github.com/rustyeddy/fxbot/indicators"
	"github.com/rustyeddy/fxbot/market"
)

// Engine computes the configured indicator families for one window. The
// defaults mirror the strategy constants: SMA 10/30 crossover, RSI 14 at
// 30/70, Bollinger 20 at 2 sigma, 20-bar channel with a 0.1% buffer.
type Engine struct {
	ShortMA, LongMA      int
	RSIPeriod            int
	Oversold, Overbought float64
	BBPeriod             int
	BBStdDev             float64
	ChannelPeriod        int
	ChannelBuffer        float64
}

func NewEngine() *Engine {
	return &Engine{
		ShortMA:       10,
		LongMA:        30,
		RSIPeriod:     14,
		Oversold:      30,
		Overbought:    70,
		BBPeriod:      20,
		BBStdDev:      2,
		ChannelPeriod: 20,
		ChannelBuffer: 0.001,
	}
}

// Compute evaluates every family against the window. Families whose lookback
// exceeds the window report Neutral rather than being omitted or failing.
func (e *Engine) Compute(window []market.Candle) Set {
	closes := market.Closes(window)
	return Set{
		FamilyMACross:   e.maCross(closes),
		FamilyRSI:       e.rsi(closes),
		FamilyBollinger: e.bollinger(closes),
		FamilyChannel:   e.channel(window),
	}
}

// maCross fires exactly once per crossing: it compares the sign of
// (short - long) on the current and previous bars, so the signal is emitted
// on the bar where the relationship flips and never again while the crossed
// state persists.
func (e *Engine) maCross(closes []float64) Signal {
	s := Signal{Family: FamilyMACross}

	curShort, ok1 := indicators.SMA(closes, e.ShortMA)
	curLong, ok2 := indicators.SMA(closes, e.LongMA)
	if !ok1 || !ok2 || len(closes) < 2 {
		return s
	}
	prev := closes[:len(closes)-1]
	prevShort, ok3 := indicators.SMA(prev, e.ShortMA)
	prevLong, ok4 := indicators.SMA(prev, e.LongMA)
	if !ok3 || !ok4 {
		return s
	}

	s.Values = map[string]float64{
		"short": curShort, "long": curLong,
		"prev_short": prevShort, "prev_long": prevLong,
	}

	switch {
	case prevShort <= prevLong && curShort > curLong:
		s.Direction = Long
		s.Strength = 1
	case prevShort >= prevLong && curShort < curLong:
		s.Direction = Short
		s.Strength = 1
	}
	return s
}

// rsi signals Long below the oversold level and Short above the overbought
// level. Crossing a threshold is a full-strength trigger, same as the other
// families; the raw reading stays available in Values.
func (e *Engine) rsi(closes []float64) Signal {
	s := Signal{Family: FamilyRSI}

	v, ok := indicators.RSI(closes, e.RSIPeriod)
	if !ok {
		return s
	}
	s.Values = map[string]float64{"rsi": v}

	switch {
	case v < e.Oversold:
		s.Direction = Long
		s.Strength = 1
	case v > e.Overbought:
		s.Direction = Short
		s.Strength = 1
	}
	return s
}

// bollinger signals Long when price closes below the lower band and Short
// above the upper band.
func (e *Engine) bollinger(closes []float64) Signal {
	s := Signal{Family: FamilyBollinger}

	upper, middle, lower, ok := indicators.Bollinger(closes, e.BBPeriod, e.BBStdDev)
	if !ok {
		return s
	}
	price := closes[len(closes)-1]
	s.Values = map[string]float64{"upper": upper, "middle": middle, "lower": lower, "price": price}

	switch {
	case price < lower:
		s.Direction = Long
		s.Strength = 1
	case price > upper:
		s.Direction = Short
		s.Strength = 1
	}
	return s
}

// channel signals a breakout beyond the recent high/low channel, excluding
// the current bar from the channel itself and requiring the buffer to be
// cleared to filter marginal pokes.
func (e *Engine) channel(window []market.Candle) Signal {
	s := Signal{Family: FamilyChannel}

	if len(window) < e.ChannelPeriod+1 {
		return s
	}
	high, low, ok := indicators.Channel(window[:len(window)-1], e.ChannelPeriod)
	if !ok {
		return s
	}
	price := window[len(window)-1].Close
	s.Values = map[string]float64{"resistance": high, "support": low, "price": price}

	switch {
	case price > high*(1+e.ChannelBuffer):
		s.Direction = Long
		s.Strength = 1
	case price < low*(1-e.ChannelBuffer):
		s.Direction = Short
		s.Strength = 1
	}
	return s
}
