// Package broker defines the trade-execution boundary. One broker-style
// endpoint with market/limit/stop primitives and asynchronous fills.
package broker

import (
	"context"
	"time"

	"github.com/rustyeddy/fxbot/market"
)

type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
	Stop   OrderType = "STOP"
)

// OrderRequest is one order submission. Key is the caller's idempotency key:
// submitting the same key twice must not place a second order. Units are
// signed, negative for short.
type OrderRequest struct {
	Key        string
	Instrument string
	Type       OrderType
	Units      float64
	Price      float64 // trigger price for limit/stop orders; ignored for market
	StopLoss   float64
	TakeProfit float64
}

// Fill is the broker's confirmation that an order executed. Reported
// asynchronously via PollFills.
type Fill struct {
	OrderKey   string
	TradeID    string
	Instrument string
	Units      float64
	Price      float64
	Time       time.Time
}

type Broker interface {
	market.TickSource
	SubmitOrder(ctx context.Context, req OrderRequest) error
	CancelOrder(ctx context.Context, key string) error
	ClosePosition(ctx context.Context, tradeID string) (Fill, error)
	PollFills(ctx context.Context) ([]Fill, error)
}
