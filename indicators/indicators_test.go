package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/fxbot/market"
)

func TestSMA(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		closes []float64
		period int
		want   float64
		ok     bool
	}{
		{"exact window", []float64{1, 2, 3}, 3, 2, true},
		{"uses last period only", []float64{10, 1, 2, 3}, 3, 2, true},
		{"window too short", []float64{1, 2}, 3, 0, false},
		{"empty", nil, 3, 0, false},
		{"zero period", []float64{1, 2, 3}, 0, 0, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := SMA(tt.closes, tt.period)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestEMA(t *testing.T) {
	t.Parallel()

	// Seeded with SMA(3)=2, then k=0.5:
	// 4 -> 3, 5 -> 4
	got, ok := EMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.True(t, ok)
	assert.InDelta(t, 4.0, got, 1e-12)

	_, ok = EMA([]float64{1, 2}, 3)
	assert.False(t, ok)
}

func TestRSI(t *testing.T) {
	t.Parallel()

	t.Run("needs period+1 closes", func(t *testing.T) {
		t.Parallel()
		_, ok := RSI([]float64{1, 2, 3}, 3)
		assert.False(t, ok)
	})

	t.Run("all gains is 100", func(t *testing.T) {
		t.Parallel()
		v, ok := RSI([]float64{1, 2, 3, 4, 5}, 4)
		assert.True(t, ok)
		assert.InDelta(t, 100.0, v, 1e-12)
	})

	t.Run("balanced gains and losses is 50", func(t *testing.T) {
		t.Parallel()
		v, ok := RSI([]float64{1, 2, 1, 2, 1}, 4)
		assert.True(t, ok)
		assert.InDelta(t, 50.0, v, 1e-12)
	})
}

func TestBollinger(t *testing.T) {
	t.Parallel()

	// Constant series: zero deviation, all bands collapse to the mean.
	u, m, l, ok := Bollinger([]float64{2, 2, 2, 2}, 4, 2)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, u, 1e-12)
	assert.InDelta(t, 2.0, m, 1e-12)
	assert.InDelta(t, 2.0, l, 1e-12)

	_, _, _, ok = Bollinger([]float64{1, 2}, 4, 2)
	assert.False(t, ok)
}

func TestChannel(t *testing.T) {
	t.Parallel()

	now := time.Now()
	window := []market.Candle{
		{Time: now, High: 1.10, Low: 1.05},
		{Time: now.Add(time.Hour), High: 1.12, Low: 1.07},
		{Time: now.Add(2 * time.Hour), High: 1.11, Low: 1.04},
	}

	high, low, ok := Channel(window, 3)
	assert.True(t, ok)
	assert.InDelta(t, 1.12, high, 1e-12)
	assert.InDelta(t, 1.04, low, 1e-12)

	_, _, ok = Channel(window, 5)
	assert.False(t, ok)
}
