// Package ledger owns the position lifecycle and all account-state mutation.
// It is the single writer of account balance, equity, daily P&L and the
// trading-halted flag; every other component reads snapshots.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/fxbot/internal/id"
	"github.com/rustyeddy/fxbot/journal"
	"github.com/rustyeddy/fxbot/logx"
	"github.com/rustyeddy/fxbot/risk"
)

var (
	ErrNotFound      = errors.New("position not found")
	ErrAlreadyClosed = errors.New("position already closed")
	ErrNotPending    = errors.New("position not pending")
)

// Account is the shared account state. Balance moves only on realized closes;
// equity adds unrealized P&L; DailyPnL covers closes within the current daily
// window only.
type Account struct {
	Currency      string
	Balance       float64
	Equity        float64
	DailyPnL      float64
	TradingHalted bool
	HaltReason    string
}

// Performance summarizes closed-trade statistics.
type Performance struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalPL       float64
}

// Ledger is the single critical section for account and position state.
type Ledger struct {
	mu        sync.Mutex
	acct      Account
	positions map[string]*Position

	dayStart        time.Time
	maxDailyLossPct float64
	pendingTimeout  time.Duration

	perf Performance

	journal journal.Journal
	log     *slog.Logger
}

func New(acct Account, maxDailyLossPct float64, pendingTimeout time.Duration, j journal.Journal) *Ledger {
	if acct.Equity == 0 {
		acct.Equity = acct.Balance
	}
	return &Ledger{
		acct:            acct,
		positions:       make(map[string]*Position),
		dayStart:        dayOf(time.Now()),
		maxDailyLossPct: maxDailyLossPct,
		pendingTimeout:  pendingTimeout,
		journal:         j,
		log:             logx.Named("ledger"),
	}
}

func dayOf(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// OpenPending records a risk-approved order as a pending position. Duplicate
// prevention is enforced here as well as in the gate; the ledger is the
// authority on what is actually open.
func (l *Ledger) OpenPending(order risk.SizedOrder, orderKey string, now time.Time) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.positions {
		if p.Status != StatusPending && p.Status != StatusOpen {
			continue
		}
		if p.Instrument == order.Instrument && p.Strategy == order.Strategy {
			return Position{}, fmt.Errorf("open pending: duplicate for %s/%s", order.Instrument, order.Strategy)
		}
	}

	p := &Position{
		ID:         id.New(),
		OrderKey:   orderKey,
		Instrument: order.Instrument,
		Direction:  order.Direction,
		Strategy:   order.Strategy,
		Confidence: order.Confidence,
		Units:      order.Units,
		Entry:      order.Entry,
		StopLoss:   order.StopLoss,
		TakeProfit: order.TakeProfit,
		SubmitTime: now,
		Status:     StatusPending,
	}
	l.positions[p.ID] = p
	return *p, nil
}

// ConfirmFill transitions a pending position to open at the fill price,
// recording the broker-side trade id for later closes. A partial fill shrinks
// the position to the filled units so exposure and P&L cover only what
// actually executed; zero fillUnits means the broker did not report a size
// and the ordered units stand.
func (l *Ledger) ConfirmFill(positionID, brokerTradeID string, fillPrice, fillUnits float64, t time.Time) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[positionID]
	if !ok {
		return Position{}, ErrNotFound
	}
	if p.Status != StatusPending {
		return Position{}, fmt.Errorf("confirm fill %s: %w (status %s)", positionID, ErrNotPending, p.Status)
	}

	p.BrokerTradeID = brokerTradeID
	p.Entry = fillPrice
	if fillUnits > 0 && fillUnits < p.Units {
		l.log.Info("partial fill",
			"position", p.ID, "ordered", p.Units, "filled", fillUnits)
		p.Units = fillUnits
	}
	p.OpenTime = t
	p.Status = StatusOpen
	return *p, nil
}

// ConfirmFillByOrderKey resolves the position carrying orderKey and opens it.
// Used by fill reconciliation, where the broker reports the order key rather
// than our position id.
func (l *Ledger) ConfirmFillByOrderKey(orderKey, brokerTradeID string, fillPrice, fillUnits float64, t time.Time) (Position, error) {
	l.mu.Lock()
	var target string
	for _, p := range l.positions {
		if p.OrderKey == orderKey && p.Status == StatusPending {
			target = p.ID
			break
		}
	}
	l.mu.Unlock()

	if target == "" {
		return Position{}, ErrNotFound
	}
	return l.ConfirmFill(target, brokerTradeID, fillPrice, fillUnits, t)
}

// Cancel transitions a pending position to cancelled. No position is created,
// no account state changes.
func (l *Ledger) Cancel(positionID, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[positionID]
	if !ok {
		return ErrNotFound
	}
	if p.Status != StatusPending {
		return fmt.Errorf("cancel %s: %w (status %s)", positionID, ErrNotPending, p.Status)
	}
	p.Status = StatusCancelled
	p.CloseReason = reason
	p.CloseTime = time.Now()
	return nil
}

// ExpirePending cancels pending positions older than the configured timeout
// and returns them so the caller can cancel the broker-side orders.
func (l *Ledger) ExpirePending(now time.Time) []Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	var expired []Position
	for _, p := range l.positions {
		if p.Status == StatusPending && now.Sub(p.SubmitTime) > l.pendingTimeout {
			p.Status = StatusCancelled
			p.CloseReason = "fill timeout"
			p.CloseTime = now
			expired = append(expired, *p)
		}
	}
	return expired
}

// Close applies the open -> closed transition exactly once. Concurrent close
// attempts resolve to a single winner; losers get ErrAlreadyClosed and no
// second P&L application. All balance, daily P&L and halt mutation happens
// here, inside the critical section.
func (l *Ledger) Close(positionID string, closePrice float64, t time.Time, reason string) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[positionID]
	if !ok {
		return Position{}, ErrNotFound
	}
	switch p.Status {
	case StatusOpen:
	case StatusClosed, StatusCancelled:
		return Position{}, fmt.Errorf("close %s: %w", positionID, ErrAlreadyClosed)
	default:
		return Position{}, fmt.Errorf("close %s: %w (status %s)", positionID, ErrNotPending, p.Status)
	}

	l.rollWindowLocked(t)

	pl := p.PL(closePrice)
	p.ClosePrice = closePrice
	p.CloseTime = t
	p.RealizedPL = pl
	p.UnrealizedPL = 0
	p.Status = StatusClosed
	p.CloseReason = reason

	l.acct.Balance += pl
	l.acct.DailyPnL += pl
	l.revalueLocked()

	l.perf.TotalTrades++
	l.perf.TotalPL += pl
	if pl > 0 {
		l.perf.WinningTrades++
	} else {
		l.perf.LosingTrades++
	}
	if l.perf.TotalTrades > 0 {
		l.perf.WinRate = float64(l.perf.WinningTrades) / float64(l.perf.TotalTrades)
	}

	// Daily loss circuit breaker: monotonic within the window, cleared only
	// by rollover.
	if !l.acct.TradingHalted && l.acct.DailyPnL <= -l.maxDailyLossPct*l.acct.Equity {
		l.haltLocked("daily loss limit", t)
	}

	if err := l.journal.RecordTrade(journal.TradeRecord{
		TradeID:    p.ID,
		Instrument: p.Instrument,
		Strategy:   p.Strategy,
		Direction:  p.Direction.String(),
		Units:      p.Units,
		EntryPrice: p.Entry,
		ExitPrice:  closePrice,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		OpenTime:   p.OpenTime,
		CloseTime:  t,
		RealizedPL: pl,
		Reason:     reason,
	}); err != nil {
		l.log.Error("record trade", "position", p.ID, "error", err)
	}

	return *p, nil
}

func (l *Ledger) haltLocked(reason string, t time.Time) {
	l.acct.TradingHalted = true
	l.acct.HaltReason = reason
	l.log.Warn("trading halted", "reason", reason)
	if err := l.journal.RecordEvent(journal.Event{
		Time: t, Kind: journal.EventTradingHalted, Detail: reason,
	}); err != nil {
		l.log.Error("record halt event", "error", err)
	}
}

// Halt sets the emergency-halt flag from outside the daily-loss rule, e.g.
// an operator signal or a fatal broker error.
func (l *Ledger) Halt(reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.acct.TradingHalted {
		l.haltLocked(reason, time.Now())
	}
}

// Resume clears an operator halt. A daily-loss halt also clears here; using
// it that way is an explicit operator override.
func (l *Ledger) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acct.TradingHalted = false
	l.acct.HaltReason = ""
}

// RollWindow advances the daily risk window if now falls on a later UTC day:
// daily P&L resets and a daily-loss halt clears.
func (l *Ledger) RollWindow(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollWindowLocked(now)
}

func (l *Ledger) rollWindowLocked(now time.Time) {
	day := dayOf(now)
	if !day.After(l.dayStart) {
		return
	}
	l.dayStart = day
	l.acct.DailyPnL = 0
	if l.acct.TradingHalted && l.acct.HaltReason == "daily loss limit" {
		l.acct.TradingHalted = false
		l.acct.HaltReason = ""
	}
	if err := l.journal.RecordEvent(journal.Event{
		Time: now, Kind: journal.EventWindowRolled,
	}); err != nil {
		l.log.Error("record window roll", "error", err)
	}
}

// Revalue refreshes unrealized P&L and equity from the latest prices. Missing
// prices leave a position's previous mark in place.
func (l *Ledger) Revalue(prices map[string]float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.positions {
		if p.Status != StatusOpen {
			continue
		}
		if price, ok := prices[p.Instrument]; ok {
			p.UnrealizedPL = p.PL(price)
		}
	}
	l.revalueLocked()
}

func (l *Ledger) revalueLocked() {
	equity := l.acct.Balance
	for _, p := range l.positions {
		if p.Status == StatusOpen {
			equity += p.UnrealizedPL
		}
	}
	l.acct.Equity = equity
}

// Account returns a copy of the shared account state.
func (l *Ledger) Account() Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acct
}

// View returns the risk gate's snapshot of account state.
func (l *Ledger) View() risk.AccountView {
	l.mu.Lock()
	defer l.mu.Unlock()
	return risk.AccountView{
		Balance:       l.acct.Balance,
		Equity:        l.acct.Equity,
		DailyPnL:      l.acct.DailyPnL,
		TradingHalted: l.acct.TradingHalted,
	}
}

// Exposures lists open and pending positions for the risk gate.
func (l *Ledger) Exposures() []risk.OpenExposure {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []risk.OpenExposure
	for _, p := range l.positions {
		if p.Status == StatusPending || p.Status == StatusOpen {
			out = append(out, risk.OpenExposure{
				Instrument: p.Instrument,
				Strategy:   p.Strategy,
				Units:      p.Units,
			})
		}
	}
	return out
}

// OpenPositions returns copies of positions in open status.
func (l *Ledger) OpenPositions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Position
	for _, p := range l.positions {
		if p.Status == StatusOpen {
			out = append(out, *p)
		}
	}
	return out
}

// Position returns a copy of one position by id.
func (l *Ledger) Position(positionID string) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[positionID]
	if !ok {
		return Position{}, ErrNotFound
	}
	return *p, nil
}

// Stats returns closed-trade statistics.
func (l *Ledger) Stats() Performance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perf
}

// Snapshot builds a performance snapshot for the reporting journal.
func (l *Ledger) Snapshot(now time.Time) journal.EquitySnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	open := 0
	for _, p := range l.positions {
		if p.Status == StatusOpen {
			open++
		}
	}
	return journal.EquitySnapshot{
		Time:          now,
		Balance:       l.acct.Balance,
		Equity:        l.acct.Equity,
		DailyPnL:      l.acct.DailyPnL,
		OpenPositions: open,
		TotalTrades:   l.perf.TotalTrades,
		WinRate:       l.perf.WinRate,
	}
}
