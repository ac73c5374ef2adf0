package strategies

import (
	"fmt"

	"github.com/rustyeddy/fxbot/market"
	"github.com/rustyeddy/fxbot/signal"
)

const BreakoutID = "breakout"

func init() {
	Register(BreakoutID, func(p StrategyParams) Strategy {
		return NewBreakout(p)
	})
}

// Breakout trades channel escapes: a close beyond the recent high/low channel
// proposes a trade in the breakout direction, with the stop just inside the
// broken level and a target of twice the breakout distance.
type Breakout struct {
	buffer float64
	weight float64
}

func NewBreakout(StrategyParams) *Breakout {
	return &Breakout{buffer: 0.001, weight: 0.75}
}

func (s *Breakout) Name() string { return BreakoutID }

func (s *Breakout) Evaluate(instrument string, sigs signal.Set, window []market.Candle) (Proposal, bool) {
	ch := sigs[signal.FamilyChannel]
	if ch.Direction == signal.Neutral {
		return Proposal{}, false
	}

	entry := market.LastClose(window)
	if entry <= 0 {
		return Proposal{}, false
	}

	p := Proposal{
		Instrument: instrument,
		Direction:  ch.Direction,
		Confidence: s.weight * ch.Strength,
		Entry:      entry,
		Strategy:   s.Name(),
		Time:       window[len(window)-1].Time,
	}
	if ch.Direction == signal.Long {
		resistance := ch.Values["resistance"]
		p.StopLoss = resistance * (1 - s.buffer)
		p.TakeProfit = entry + 2*(entry-resistance)
		p.Reason = fmt.Sprintf("breakout above %.5f", resistance)
	} else {
		support := ch.Values["support"]
		p.StopLoss = support * (1 + s.buffer)
		p.TakeProfit = entry - 2*(support-entry)
		p.Reason = fmt.Sprintf("breakdown below %.5f", support)
	}
	return p, true
}
