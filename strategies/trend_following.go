package strategies

import (
	"github.com/rustyeddy/fxbot/market"
	"github.com/rustyeddy/fxbot/signal"
)

const TrendFollowingID = "trend_following"

func init() {
	Register(TrendFollowingID, func(p StrategyParams) Strategy {
		return NewTrendFollowing(p)
	})
}

// TrendFollowing trades moving-average crossovers: a golden cross proposes a
// long, a death cross a short. Stops and targets are percentage offsets from
// the entry close.
type TrendFollowing struct {
	stopPct   float64
	targetPct float64
	weight    float64
}

func NewTrendFollowing(p StrategyParams) *TrendFollowing {
	s := &TrendFollowing{stopPct: 0.02, targetPct: 0.04, weight: 0.7}
	if p.StopPct > 0 {
		s.stopPct = p.StopPct
	}
	if p.TargetPct > 0 {
		s.targetPct = p.TargetPct
	}
	return s
}

func (s *TrendFollowing) Name() string { return TrendFollowingID }

func (s *TrendFollowing) Evaluate(instrument string, sigs signal.Set, window []market.Candle) (Proposal, bool) {
	cross := sigs[signal.FamilyMACross]
	if cross.Direction == signal.Neutral {
		return Proposal{}, false
	}

	entry := market.LastClose(window)
	if entry <= 0 {
		return Proposal{}, false
	}

	p := Proposal{
		Instrument: instrument,
		Direction:  cross.Direction,
		Confidence: s.weight * cross.Strength,
		Entry:      entry,
		Strategy:   s.Name(),
		Time:       window[len(window)-1].Time,
	}
	if cross.Direction == signal.Long {
		p.StopLoss = entry * (1 - s.stopPct)
		p.TakeProfit = entry * (1 + s.targetPct)
		p.Reason = "golden cross"
	} else {
		p.StopLoss = entry * (1 + s.stopPct)
		p.TakeProfit = entry * (1 - s.targetPct)
		p.Reason = "death cross"
	}
	return p, true
}
