// Package engine schedules the trading core: the decision cycle, the
// position-monitoring cycle and fill reconciliation run as independent
// periodic tasks sharing the ledger, so monitoring never stalls behind a
// slow data fetch.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/fxbot/broker"
	"github.com/rustyeddy/fxbot/config"
	"github.com/rustyeddy/fxbot/exec"
	"github.com/rustyeddy/fxbot/journal"
	"github.com/rustyeddy/fxbot/ledger"
	"github.com/rustyeddy/fxbot/logx"
	"github.com/rustyeddy/fxbot/market"
	"github.com/rustyeddy/fxbot/risk"
	"github.com/rustyeddy/fxbot/signal"
	"github.com/rustyeddy/fxbot/strategies"
)

var ErrAlreadyRunning = errors.New("engine already running")

// Close reasons recorded on positions.
const (
	ReasonStopLoss   = "StopLoss"
	ReasonTakeProfit = "TakeProfit"
	ReasonManual     = "ManualClose"
)

type Engine struct {
	cfg  *config.Config
	led  *ledger.Ledger
	eval *strategies.Evaluator
	gate *risk.Gate
	adp  *exec.Adapter
	data market.CandleSource
	jour journal.Journal
	log  *slog.Logger

	running atomic.Bool
}

func New(cfg *config.Config, led *ledger.Ledger, eval *strategies.Evaluator,
	gate *risk.Gate, adp *exec.Adapter, data market.CandleSource, jour journal.Journal) *Engine {
	return &Engine{
		cfg:  cfg,
		led:  led,
		eval: eval,
		gate: gate,
		adp:  adp,
		data: data,
		jour: jour,
		log:  logx.Named("engine"),
	}
}

// Run drives the three periodic tasks until ctx is cancelled. Cycle-level
// failures are logged and skipped; only context cancellation stops the loop.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	e.log.Info("engine started",
		"instruments", len(e.cfg.Instruments),
		"strategies", len(e.cfg.Strategies))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.every(ctx, e.cfg.Engine.Decision(), e.DecisionCycle) })
	g.Go(func() error { return e.every(ctx, e.cfg.Engine.Monitor(), e.MonitorCycle) })
	g.Go(func() error { return e.every(ctx, e.cfg.Engine.FillPoll(), e.ReconcileFills) })

	err := g.Wait()
	e.log.Info("engine stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (e *Engine) every(ctx context.Context, d time.Duration, cycle func(context.Context)) error {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cycle(ctx)
		}
	}
}

func (e *Engine) Running() bool { return e.running.Load() }

// DecisionCycle evaluates every configured instrument for a new trade. The
// halt flag is checked before any proposal is evaluated; a halted account
// produces no new orders but monitoring continues elsewhere.
func (e *Engine) DecisionCycle(ctx context.Context) {
	now := time.Now()
	e.led.RollWindow(now)

	view := e.led.View()
	if view.TradingHalted {
		e.log.Debug("trading halted, skipping decision cycle")
		return
	}
	if e.adp.CloseOnly() {
		e.log.Debug("broker in close-only mode, skipping decision cycle")
		return
	}

	for _, instrument := range e.cfg.Instruments {
		window, err := e.data.GetCandles(ctx, instrument,
			market.Timeframe(e.cfg.Engine.Timeframe), e.cfg.Engine.WindowSize)
		if err != nil {
			e.log.Warn("price window fetch failed", "instrument", instrument, "error", err)
			continue
		}

		proposal, ok := e.eval.Propose(instrument, window)
		if !ok {
			continue
		}
		e.log.Info("proposal",
			"instrument", instrument,
			"strategy", proposal.Strategy,
			"direction", proposal.Direction.String(),
			"confidence", proposal.Confidence,
			"reason", proposal.Reason)

		// Re-read the halt flag per proposal: a close elsewhere in this
		// cycle may have tripped the daily limit.
		e.submit(ctx, proposal)
	}
}

// submit gates a proposal and drives the approved order to the broker. Every
// outcome is recorded: a labeled rejection, a cancelled pending, or a
// submitted order.
func (e *Engine) submit(ctx context.Context, p strategies.Proposal) risk.Decision {
	now := time.Now()

	decision := e.gate.Validate(p, e.led.View(), e.led.Exposures())
	if !decision.Approved {
		e.log.Info("proposal rejected",
			"instrument", p.Instrument, "strategy", p.Strategy,
			"code", decision.Code, "reason", decision.Reason)
		e.recordEvent(journal.Event{
			Time: now, Kind: journal.EventProposalRejected,
			Instrument: p.Instrument, Strategy: p.Strategy,
			Code: decision.Code, Detail: decision.Reason,
		})
		return decision
	}

	key := exec.NewOrderKey()
	pos, err := e.led.OpenPending(decision.Order, key, now)
	if err != nil {
		// The gate approved against a snapshot; a concurrent open won the
		// race. Same treatment as any other rejection.
		e.log.Warn("ledger refused order", "instrument", p.Instrument, "error", err)
		e.recordEvent(journal.Event{
			Time: now, Kind: journal.EventProposalRejected,
			Instrument: p.Instrument, Strategy: p.Strategy,
			Code: risk.CodeDuplicate, Detail: err.Error(),
		})
		return risk.Decision{Code: risk.CodeDuplicate, Reason: err.Error()}
	}

	units := decision.Order.Units
	if decision.Order.Direction == signal.Short {
		units = -units
	}
	req := broker.OrderRequest{
		Key:        key,
		Instrument: decision.Order.Instrument,
		Type:       broker.Market,
		Units:      units,
		StopLoss:   decision.Order.StopLoss,
		TakeProfit: decision.Order.TakeProfit,
	}

	if err := e.adp.Submit(ctx, req); err != nil {
		// Any submission failure resolves the pending to a terminal state.
		if cerr := e.led.Cancel(pos.ID, err.Error()); cerr != nil {
			e.log.Error("cancel after failed submit", "position", pos.ID, "error", cerr)
		}
		e.recordEvent(journal.Event{
			Time: time.Now(), Kind: journal.EventOrderCancelled,
			Instrument: p.Instrument, Strategy: p.Strategy,
			Code: "SUBMIT_FAILED", Detail: err.Error(),
		})
		return risk.Decision{Code: "SUBMIT_FAILED", Reason: err.Error()}
	}

	e.log.Info("order submitted",
		"position", pos.ID, "instrument", p.Instrument,
		"units", units, "stop", decision.Order.StopLoss, "target", decision.Order.TakeProfit)
	e.recordEvent(journal.Event{
		Time: time.Now(), Kind: journal.EventOrderSubmitted,
		Instrument: p.Instrument, Strategy: p.Strategy, Detail: pos.ID,
	})
	return decision
}

// MonitorCycle protects open positions: it expires stale pendings, refreshes
// marks, drives stop/target closes and records a performance snapshot. It
// runs during halts so existing positions remain protected.
func (e *Engine) MonitorCycle(ctx context.Context) {
	now := time.Now()

	for _, p := range e.led.ExpirePending(now) {
		if err := e.adp.Cancel(ctx, p.OrderKey); err != nil {
			e.log.Warn("broker cancel failed", "position", p.ID, "error", err)
		}
		e.recordEvent(journal.Event{
			Time: now, Kind: journal.EventOrderCancelled,
			Instrument: p.Instrument, Strategy: p.Strategy,
			Code: "FILL_TIMEOUT", Detail: p.ID,
		})
	}

	prices := make(map[string]float64)
	for _, p := range e.led.OpenPositions() {
		tick, err := e.adp.GetTick(ctx, p.Instrument)
		if err != nil {
			e.log.Warn("tick fetch failed", "instrument", p.Instrument, "error", err)
			continue
		}
		prices[p.Instrument] = tick.Mid()

		// Longs close on bid, shorts on ask.
		mark := tick.Bid
		if p.Direction == signal.Short {
			mark = tick.Ask
		}

		switch {
		case p.HitStop(mark):
			e.closePosition(ctx, p, ReasonStopLoss)
		case p.HitTarget(mark):
			e.closePosition(ctx, p, ReasonTakeProfit)
		}
	}

	e.led.Revalue(prices)
	if err := e.jour.RecordEquity(e.led.Snapshot(now)); err != nil {
		e.log.Error("record equity snapshot", "error", err)
	}
}

func (e *Engine) closePosition(ctx context.Context, p ledger.Position, reason string) {
	fill, err := e.adp.Close(ctx, p.BrokerTradeID)
	if err != nil {
		e.log.Warn("broker close failed",
			"position", p.ID, "reason", reason, "error", err)
		return
	}

	closed, err := e.led.Close(p.ID, fill.Price, fill.Time, reason)
	if err != nil {
		// A concurrent close won the transition; P&L was applied once there.
		if errors.Is(err, ledger.ErrAlreadyClosed) {
			e.log.Debug("position already closed", "position", p.ID)
			return
		}
		e.log.Error("ledger close failed", "position", p.ID, "error", err)
		return
	}

	e.log.Info("position closed",
		"position", closed.ID, "instrument", closed.Instrument,
		"reason", reason, "pl", closed.RealizedPL)
	e.recordEvent(journal.Event{
		Time: closed.CloseTime, Kind: journal.EventPositionClosed,
		Instrument: closed.Instrument, Strategy: closed.Strategy,
		Code: reason, Detail: closed.ID,
	})
}

// ReconcileFills matches asynchronous broker fills to pending positions.
func (e *Engine) ReconcileFills(ctx context.Context) {
	fills, err := e.adp.PollFills(ctx)
	if err != nil {
		e.log.Warn("fill poll failed", "error", err)
		return
	}

	for _, f := range fills {
		pos, err := e.led.ConfirmFillByOrderKey(f.OrderKey, f.TradeID, f.Price, math.Abs(f.Units), f.Time)
		if err != nil {
			// Fill for an expired or unknown order; nothing to open.
			e.log.Warn("unmatched fill", "order_key", f.OrderKey, "error", err)
			continue
		}
		e.log.Info("order filled",
			"position", pos.ID, "instrument", pos.Instrument, "price", f.Price)
		e.recordEvent(journal.Event{
			Time: f.Time, Kind: journal.EventOrderFilled,
			Instrument: pos.Instrument, Strategy: pos.Strategy, Detail: pos.ID,
		})
	}
}

func (e *Engine) recordEvent(ev journal.Event) {
	if err := e.jour.RecordEvent(ev); err != nil {
		e.log.Error("record event", "kind", ev.Kind, "error", err)
	}
}
