package strategies

import (
	"fmt"

	"github.com/rustyeddy/fxbot/market"
	"github.com/rustyeddy/fxbot/signal"
)

const MeanReversionID = "mean_reversion"

func init() {
	Register(MeanReversionID, func(p StrategyParams) Strategy {
		return NewMeanReversion(p)
	})
}

// MeanReversion trades exhaustion: it requires the RSI and Bollinger families
// to agree on a direction and targets the middle band, expecting price to
// revert to its recent mean.
type MeanReversion struct {
	stopPct float64
	weight  float64
}

func NewMeanReversion(p StrategyParams) *MeanReversion {
	s := &MeanReversion{stopPct: 0.03, weight: 0.8}
	if p.StopPct > 0 {
		s.stopPct = p.StopPct
	}
	return s
}

func (s *MeanReversion) Name() string { return MeanReversionID }

func (s *MeanReversion) Evaluate(instrument string, sigs signal.Set, window []market.Candle) (Proposal, bool) {
	rsi := sigs[signal.FamilyRSI]
	bb := sigs[signal.FamilyBollinger]
	if rsi.Direction == signal.Neutral || rsi.Direction != bb.Direction {
		return Proposal{}, false
	}

	entry := market.LastClose(window)
	middle, ok := bb.Values["middle"]
	if entry <= 0 || !ok {
		return Proposal{}, false
	}

	p := Proposal{
		Instrument: instrument,
		Direction:  rsi.Direction,
		Confidence: s.weight * rsi.Strength,
		Entry:      entry,
		TakeProfit: middle,
		Strategy:   s.Name(),
		Time:       window[len(window)-1].Time,
		Reason:     fmt.Sprintf("rsi %.1f outside band", rsi.Values["rsi"]),
	}
	if rsi.Direction == signal.Long {
		p.StopLoss = entry * (1 - s.stopPct)
	} else {
		p.StopLoss = entry * (1 + s.stopPct)
	}
	return p, true
}
