package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/fxbot/ledger"
	"github.com/rustyeddy/fxbot/risk"
	"github.com/rustyeddy/fxbot/strategies"
)

// Status is the operator's view of the running core.
type Status struct {
	Running       bool
	TradingHalted bool
	HaltReason    string
	CloseOnly     bool

	Balance       float64
	Equity        float64
	DailyPnL      float64
	OpenPositions int

	TotalTrades int
	WinRate     float64
	TotalPL     float64
}

func (e *Engine) Status() Status {
	acct := e.led.Account()
	perf := e.led.Stats()
	return Status{
		Running:       e.running.Load(),
		TradingHalted: acct.TradingHalted,
		HaltReason:    acct.HaltReason,
		CloseOnly:     e.adp.CloseOnly(),
		Balance:       acct.Balance,
		Equity:        acct.Equity,
		DailyPnL:      acct.DailyPnL,
		OpenPositions: len(e.led.OpenPositions()),
		TotalTrades:   perf.TotalTrades,
		WinRate:       perf.WinRate,
		TotalPL:       perf.TotalPL,
	}
}

// RequestTrade pushes an operator-supplied proposal through the same gate and
// submission path as the automated cycle. A halted account rejects it like
// any other proposal.
func (e *Engine) RequestTrade(ctx context.Context, p strategies.Proposal) (risk.Decision, error) {
	if p.Time.IsZero() {
		p.Time = time.Now()
	}
	decision := e.submit(ctx, p)
	if !decision.Approved && decision.Code == "SUBMIT_FAILED" {
		return decision, fmt.Errorf("submit %s: %s", p.Instrument, decision.Reason)
	}
	return decision, nil
}

// RequestClose closes one open position at market. It shares the
// single-winner close path with the monitor, so racing an automatic stop is
// safe.
func (e *Engine) RequestClose(ctx context.Context, positionID string) error {
	p, err := e.led.Position(positionID)
	if err != nil {
		return err
	}
	if p.Status != ledger.StatusOpen {
		return fmt.Errorf("position %s is %s, not open", positionID, p.Status)
	}
	e.closePosition(ctx, p, ReasonManual)
	return nil
}

// HaltTrading stops new entries until ResumeTrading. Open positions stay
// monitored and close normally.
func (e *Engine) HaltTrading(reason string) {
	e.log.Warn("trading halted by operator", "reason", reason)
	e.led.Halt(reason)
}

// ResumeTrading clears both an operator halt and broker close-only mode.
func (e *Engine) ResumeTrading() {
	e.log.Info("trading resumed by operator")
	e.led.Resume()
	e.adp.ClearCloseOnly()
}
