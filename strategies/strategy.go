// Package strategies maps indicator signals to candidate trade proposals.
package strategies

import (
	"time"

	"github.com/rustyeddy/fxbot/market"
	"github.com/rustyeddy/fxbot/signal"
)

// Proposal is a candidate trade before risk validation. It carries no size;
// sizing belongs to the risk gate.
type Proposal struct {
	Instrument string
	Direction  signal.Direction
	Confidence float64
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Strategy   string
	Reason     string
	Time       time.Time
}

// Strategy turns one cycle's signals for an instrument into at most one
// proposal. Implementations are stateless between cycles; all state lives in
// the window and the signal set.
type Strategy interface {
	Name() string
	Evaluate(instrument string, sigs signal.Set, window []market.Candle) (Proposal, bool)
}

var registry = make(map[string]func(StrategyParams) Strategy)

// StrategyParams are per-strategy overrides from configuration. Zero values
// mean "use the strategy default".
type StrategyParams struct {
	StopPct   float64
	TargetPct float64
}

// Register makes a strategy constructor available by id.
func Register(id string, ctor func(StrategyParams) Strategy) {
	registry[id] = ctor
}

// New builds the named strategy, or nil for an unknown id.
func New(id string, params StrategyParams) Strategy {
	ctor, ok := registry[id]
	if !ok {
		return nil
	}
	return ctor(params)
}

// Known reports whether id names a registered strategy.
func Known(id string) bool {
	_, ok := registry[id]
	return ok
}
