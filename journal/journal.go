// Package journal records structured trade, event and performance records.
// The core emits plain records; formatting and presentation live elsewhere.
package journal

import "time"

// TradeRecord is the full record of one closed position.
type TradeRecord struct {
	TradeID    string
	Instrument string
	Strategy   string
	Direction  string
	Units      float64
	EntryPrice float64
	ExitPrice  float64
	StopLoss   float64
	TakeProfit float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Reason     string
}

// EquitySnapshot is a periodic performance snapshot.
type EquitySnapshot struct {
	Time          time.Time
	Balance       float64
	Equity        float64
	DailyPnL      float64
	OpenPositions int
	TotalTrades   int
	WinRate       float64
}

// Event kinds.
const (
	EventProposalRejected = "proposal_rejected"
	EventOrderSubmitted   = "order_submitted"
	EventOrderFilled      = "order_filled"
	EventOrderCancelled   = "order_cancelled"
	EventPositionClosed   = "position_closed"
	EventTradingHalted    = "trading_halted"
	EventWindowRolled     = "window_rolled"
)

// Event is a structured lifecycle event with a reason code. Every rejection
// and failure in the core produces one; nothing fails silently.
type Event struct {
	Time       time.Time
	Kind       string
	Instrument string
	Strategy   string
	Code       string
	Detail     string
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	RecordEvent(Event) error
	Close() error
}
