// Package risk validates trade proposals against account state and converts
// the survivors into sized orders.
package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/fxbot/signal"
	"github.com/rustyeddy/fxbot/strategies"
)

// Rejection reason codes. Each maps to one independently testable rule.
const (
	CodeInvalidProposal  = "INVALID_PROPOSAL"
	CodeConfidenceTooLow = "CONFIDENCE_TOO_LOW"
	CodeTradingHalted    = "DAILY_LOSS_LIMIT"
	CodeDuplicate        = "DUPLICATE_POSITION"
	CodeMaxExposure      = "MAX_EXPOSURE"
	CodeMaxPositionSize  = "MAX_POSITION_SIZE"
	CodeBelowMinLot      = "BELOW_MIN_LOT"
)

// AccountView is the gate's read-only snapshot of shared account state.
type AccountView struct {
	Balance       float64
	Equity        float64
	DailyPnL      float64
	TradingHalted bool
}

// OpenExposure summarizes one open or pending position for duplicate and
// exposure checks.
type OpenExposure struct {
	Instrument string
	Strategy   string
	Units      float64
}

// SizedOrder is a risk-approved proposal with a concrete size. It always
// carries both a stop-loss and a take-profit.
type SizedOrder struct {
	Instrument string
	Direction  signal.Direction
	Units      float64
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Confidence float64
	Strategy   string
}

// Decision is the gate's verdict on one proposal.
type Decision struct {
	Approved bool
	Order    SizedOrder
	Code     string
	Reason   string
}

func rejected(code, format string, args ...any) Decision {
	return Decision{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Gate applies a Policy. It never mutates account state; it only reads the
// snapshot it is handed.
type Gate struct {
	policy Policy
}

func NewGate(policy Policy) *Gate {
	return &Gate{policy: policy}
}

func (g *Gate) Policy() Policy { return g.policy }

// Validate gates one proposal. The checks run in a fixed order: structural
// validation, confidence (before any sizing work), daily-loss halt, duplicate
// position, exposure, then sizing with the position-cap clamp. Validation is
// a pure function of its inputs, so sizing the same proposal against the same
// snapshot twice yields the same order.
func (g *Gate) Validate(p strategies.Proposal, acct AccountView, open []OpenExposure) Decision {
	if p.Instrument == "" || p.Direction == signal.Neutral {
		return rejected(CodeInvalidProposal, "missing instrument or direction")
	}
	if p.Entry <= 0 || p.StopLoss <= 0 || p.TakeProfit <= 0 {
		return rejected(CodeInvalidProposal, "entry, stop and target must all be set")
	}
	if !stopOnLossSide(p.Direction, p.Entry, p.StopLoss) || !targetOnProfitSide(p.Direction, p.Entry, p.TakeProfit) {
		return rejected(CodeInvalidProposal, "stop/target on wrong side of entry for %s", p.Direction)
	}

	if p.Confidence < g.policy.MinConfidence {
		return rejected(CodeConfidenceTooLow,
			"confidence %.2f below minimum %.2f", p.Confidence, g.policy.MinConfidence)
	}

	if acct.TradingHalted || acct.DailyPnL <= -g.policy.MaxDailyLossPct*acct.Equity {
		return rejected(CodeTradingHalted,
			"daily loss limit reached (daily P&L %.2f, equity %.2f)", acct.DailyPnL, acct.Equity)
	}

	var openUnits float64
	for _, o := range open {
		openUnits += o.Units
		if !g.policy.AllowPyramiding && o.Instrument == p.Instrument && o.Strategy == p.Strategy {
			return rejected(CodeDuplicate,
				"position already open for %s/%s", p.Instrument, p.Strategy)
		}
	}

	maxUnits := g.policy.MaxPositionPct * acct.Equity
	headroom := g.policy.MaxExposurePct*acct.Equity - openUnits
	if headroom < g.policy.MinLotUnits {
		return rejected(CodeMaxExposure,
			"open exposure %.0f units leaves no viable room under cap %.2f%% of equity",
			openUnits, 100*g.policy.MaxExposurePct)
	}

	stopDistance := math.Abs(p.Entry - p.StopLoss)
	units := acct.Equity * g.policy.RiskPerTrade / stopDistance

	clamped := false
	if units > maxUnits {
		units = maxUnits
		clamped = true
	}
	if units > headroom {
		units = headroom
	}
	units = math.Floor(units)

	if units < g.policy.MinLotUnits || units <= 0 {
		if clamped {
			return rejected(CodeMaxPositionSize,
				"size clamped to %.0f units, below minimum lot %.0f", units, g.policy.MinLotUnits)
		}
		return rejected(CodeBelowMinLot,
			"sized %.0f units, below minimum lot %.0f", units, g.policy.MinLotUnits)
	}

	return Decision{
		Approved: true,
		Order: SizedOrder{
			Instrument: p.Instrument,
			Direction:  p.Direction,
			Units:      units,
			Entry:      p.Entry,
			StopLoss:   p.StopLoss,
			TakeProfit: p.TakeProfit,
			Confidence: p.Confidence,
			Strategy:   p.Strategy,
		},
	}
}

func stopOnLossSide(d signal.Direction, entry, stop float64) bool {
	if d == signal.Long {
		return stop < entry
	}
	return stop > entry
}

func targetOnProfitSide(d signal.Direction, entry, target float64) bool {
	if d == signal.Long {
		return target > entry
	}
	return target < entry
}
