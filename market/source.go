package market

import "context"

// Timeframe names a candle bucket size, e.g. "M5", "H1".
type Timeframe string

const (
	M1 Timeframe = "M1"
	M5 Timeframe = "M5"
	H1 Timeframe = "H1"
)

// TickSource supplies the latest quote for an instrument.
type TickSource interface {
	GetTick(ctx context.Context, instrument string) (Tick, error)
}

// CandleSource supplies a time-ascending window of recent candles. Gaps in the
// underlying feed are skipped, not interpolated; callers must tolerate windows
// shorter than requested.
type CandleSource interface {
	GetCandles(ctx context.Context, instrument string, tf Timeframe, n int) ([]Candle, error)
}
