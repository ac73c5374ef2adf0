package indicators

import "github.com/rustyeddy/fxbot/market"

// Channel returns the highest high and lowest low over the last period
// candles, the support/resistance levels used by breakout detection.
func Channel(window []market.Candle, period int) (high, low float64, ok bool) {
	if period <= 0 || len(window) < period {
		return 0, 0, false
	}
	recent := window[len(window)-period:]
	high, low = recent[0].High, recent[0].Low
	for _, c := range recent[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low, true
}
