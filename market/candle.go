package market

import "time"

// Candle is one OHLC bucket for a timeframe.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Closes extracts close prices from a time-ascending candle window.
func Closes(window []Candle) []float64 {
	out := make([]float64, len(window))
	for i, c := range window {
		out[i] = c.Close
	}
	return out
}

// LastClose returns the most recent close, or 0 for an empty window.
func LastClose(window []Candle) float64 {
	if len(window) == 0 {
		return 0
	}
	return window[len(window)-1].Close
}
