// Package indicators provides pure window functions over closed candles.
// Every function takes a time-ascending window and reports ok=false when the
// window is shorter than the indicator's lookback, never an error.
package indicators

import "math"

// SMA is the simple moving average of the last period closes.
func SMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range closes[len(closes)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// EMA is the exponential moving average seeded with the SMA of the first
// period values, then updated with multiplier 2/(period+1).
func EMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	seed := 0.0
	for _, v := range closes[:period] {
		seed += v
	}
	ema := seed / float64(period)
	k := 2.0 / float64(period+1)
	for _, v := range closes[period:] {
		ema = (v-ema)*k + ema
	}
	return ema, true
}

// RSI is the relative strength index over simple averages of the last period
// gains and losses. It needs period+1 closes. An all-gain window yields 100.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}
	recent := closes[len(closes)-period-1:]
	var gain, loss float64
	for i := 1; i < len(recent); i++ {
		change := recent[i] - recent[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// Bollinger returns the upper, middle and lower bands: SMA(period) ± k
// population standard deviations.
func Bollinger(closes []float64, period int, k float64) (upper, middle, lower float64, ok bool) {
	middle, ok = SMA(closes, period)
	if !ok {
		return 0, 0, 0, false
	}
	recent := closes[len(closes)-period:]
	var sq float64
	for _, v := range recent {
		d := v - middle
		sq += d * d
	}
	std := math.Sqrt(sq / float64(period))
	return middle + k*std, middle, middle - k*std, true
}
