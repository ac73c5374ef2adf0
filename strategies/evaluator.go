package strategies

import (
	"log/slog"

	"github.com/rustyeddy/fxbot/logx"
	"github.com/rustyeddy/fxbot/market"
	"github.com/rustyeddy/fxbot/signal"
)

// Evaluator runs the configured strategies against one instrument's window
// and yields at most one proposal per cycle. Ties between strategies are
// broken by list order (highest priority first); strategies proposing
// opposite directions in the same cycle cancel each other out and no
// proposal is produced.
type Evaluator struct {
	engine *signal.Engine
	strats []Strategy
	log    *slog.Logger
}

func NewEvaluator(engine *signal.Engine, strats []Strategy) *Evaluator {
	return &Evaluator{
		engine: engine,
		strats: strats,
		log:    logx.Named("evaluator"),
	}
}

// Propose computes the cycle's signals once and lets every strategy vote.
func (e *Evaluator) Propose(instrument string, window []market.Candle) (Proposal, bool) {
	if len(window) == 0 {
		return Proposal{}, false
	}

	sigs := e.engine.Compute(window)

	var candidates []Proposal
	for _, s := range e.strats {
		p, ok := s.Evaluate(instrument, sigs, window)
		if !ok {
			continue
		}
		if p.Direction == signal.Neutral || p.Confidence < 0 || p.Confidence > 1 {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return Proposal{}, false
	}

	winner := candidates[0]
	for _, p := range candidates[1:] {
		if p.Direction != winner.Direction {
			e.log.Debug("conflicting strategy directions, no proposal",
				"instrument", instrument,
				"first", winner.Strategy, "second", p.Strategy)
			return Proposal{}, false
		}
	}
	return winner, true
}
