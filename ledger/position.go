package ledger

import (
	"time"

	"github.com/rustyeddy/fxbot/signal"
)

// Status is a position's lifecycle state. Transitions are totally ordered:
// pending -> open -> closed, or pending -> cancelled. Closed and cancelled
// are terminal; a closed position is immutable.
type Status string

const (
	StatusPending   Status = "pending"
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

// Position is the authoritative record of one trade. Units are always
// positive; Direction carries the side.
type Position struct {
	ID            string
	OrderKey      string
	BrokerTradeID string
	Instrument    string
	Direction     signal.Direction
	Strategy      string
	Confidence    float64

	Units      float64
	Entry      float64 // requested entry; replaced by the fill price on open
	StopLoss   float64
	TakeProfit float64

	SubmitTime time.Time
	OpenTime   time.Time
	CloseTime  time.Time

	ClosePrice   float64
	RealizedPL   float64
	UnrealizedPL float64

	Status      Status
	CloseReason string
}

// HitStop reports whether price has reached the stop-loss level.
func (p *Position) HitStop(price float64) bool {
	if p.Direction == signal.Long {
		return price <= p.StopLoss
	}
	return price >= p.StopLoss
}

// HitTarget reports whether price has reached the take-profit level.
func (p *Position) HitTarget(price float64) bool {
	if p.Direction == signal.Long {
		return price >= p.TakeProfit
	}
	return price <= p.TakeProfit
}

// PL is the profit in account currency of moving from the entry to price.
func (p *Position) PL(price float64) float64 {
	if p.Direction == signal.Long {
		return (price - p.Entry) * p.Units
	}
	return (p.Entry - price) * p.Units
}
