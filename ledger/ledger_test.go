package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/fxbot/journal"
	"github.com/rustyeddy/fxbot/risk"
	"github.com/rustyeddy/fxbot/signal"
)

func newTestLedger() (*Ledger, *journal.Memory) {
	j := journal.NewMemory()
	l := New(Account{Currency: "USD", Balance: 10000}, 0.05, 2*time.Minute, j)
	return l, j
}

func longOrder() risk.SizedOrder {
	return risk.SizedOrder{
		Instrument: "EUR_USD",
		Direction:  signal.Long,
		Units:      1000,
		Entry:      1.1000,
		StopLoss:   1.0780,
		TakeProfit: 1.1440,
		Confidence: 0.7,
		Strategy:   "trend_following",
	}
}

func TestLifecyclePendingOpenClosed(t *testing.T) {
	t.Parallel()

	l, j := newTestLedger()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	p, err := l.OpenPending(longOrder(), "key-1", now)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.Status)

	// Filled slightly off the requested entry.
	p, err = l.ConfirmFill(p.ID, "bt-1", 1.1002, 0, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, p.Status)
	assert.Equal(t, 1.1002, p.Entry)

	closed, err := l.Close(p.ID, 1.1102, now.Add(time.Hour), "TakeProfit")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
	assert.InDelta(t, 10.0, closed.RealizedPL, 1e-9) // 0.0100 * 1000

	acct := l.Account()
	assert.InDelta(t, 10010, acct.Balance, 1e-9)
	assert.InDelta(t, 10.0, acct.DailyPnL, 1e-9)

	require.Len(t, j.Trades, 1)
	assert.Equal(t, "TakeProfit", j.Trades[0].Reason)
}

func TestPartialFillShrinksPosition(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	p, err := l.OpenPending(longOrder(), "key-1", now)
	require.NoError(t, err)

	// Broker fills 400 of the 1000 ordered units.
	p, err = l.ConfirmFill(p.ID, "bt-1", 1.1000, 400, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 400.0, p.Units)

	exps := l.Exposures()
	require.Len(t, exps, 1)
	assert.Equal(t, 400.0, exps[0].Units)

	// P&L covers the filled units only.
	closed, err := l.Close(p.ID, 1.1100, now.Add(time.Hour), "TakeProfit")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, closed.RealizedPL, 1e-9) // 0.0100 * 400
	assert.InDelta(t, 10004, l.Account().Balance, 1e-9)

	// A reported fill size at or above the order never grows the position.
	p2, err := l.OpenPending(longOrder(), "key-2", now.Add(2*time.Hour))
	require.NoError(t, err)
	p2, err = l.ConfirmFill(p2.ID, "bt-2", 1.1000, 5000, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, p2.Units)
}

func TestPendingCancel(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger()
	now := time.Now()

	p, err := l.OpenPending(longOrder(), "key-1", now)
	require.NoError(t, err)
	require.NoError(t, l.Cancel(p.ID, "broker rejected"))

	// Cancelled is terminal: no fill, no close, no account change.
	_, err = l.ConfirmFill(p.ID, "bt-1", 1.1, 0, now)
	assert.ErrorIs(t, err, ErrNotPending)
	_, err = l.Close(p.ID, 1.1, now, "manual")
	assert.ErrorIs(t, err, ErrAlreadyClosed)
	assert.InDelta(t, 10000, l.Account().Balance, 1e-9)
}

func TestPendingTimeout(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger()
	now := time.Now()

	p, err := l.OpenPending(longOrder(), "key-1", now)
	require.NoError(t, err)

	assert.Empty(t, l.ExpirePending(now.Add(time.Minute)))

	expired := l.ExpirePending(now.Add(3 * time.Minute))
	require.Len(t, expired, 1)
	assert.Equal(t, p.ID, expired[0].ID)
	assert.Equal(t, StatusCancelled, expired[0].Status)
}

func TestDuplicatePositionRefused(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger()
	now := time.Now()

	_, err := l.OpenPending(longOrder(), "key-1", now)
	require.NoError(t, err)

	_, err = l.OpenPending(longOrder(), "key-2", now)
	assert.Error(t, err)

	// Different strategy on the same instrument is fine.
	other := longOrder()
	other.Strategy = "breakout"
	_, err = l.OpenPending(other, "key-3", now)
	assert.NoError(t, err)
}

func TestConcurrentCloseSingleWinner(t *testing.T) {
	t.Parallel()

	l, j := newTestLedger()
	now := time.Now()

	p, err := l.OpenPending(longOrder(), "key-1", now)
	require.NoError(t, err)
	_, err = l.ConfirmFill(p.ID, "bt-1", 1.1000, 0, now)
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Close(p.ID, 1.1100, time.Now(), "StopLoss"); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	assert.Equal(t, 1, won)
	assert.Len(t, j.Trades, 1)
	// P&L applied exactly once.
	assert.InDelta(t, 10010, l.Account().Balance, 1e-9)
}

func TestDailyLossHaltAndWindowRollover(t *testing.T) {
	t.Parallel()

	l, j := newTestLedger()
	day1 := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	p, err := l.OpenPending(longOrder(), "key-1", day1)
	require.NoError(t, err)
	_, err = l.ConfirmFill(p.ID, "bt-1", 1.1000, 0, day1)
	require.NoError(t, err)

	// Lose 5.2% of equity in one close: halt trips.
	// 1000 units, price drop 0.55 -> -550 on a ~9450 equity base.
	_, err = l.Close(p.ID, 0.5500, day1.Add(time.Hour), "StopLoss")
	require.NoError(t, err)

	acct := l.Account()
	assert.True(t, acct.TradingHalted)
	assert.Equal(t, "daily loss limit", acct.HaltReason)
	require.Len(t, j.EventsOfKind(journal.EventTradingHalted), 1)

	// Halt is monotonic within the window.
	l.RollWindow(day1.Add(2 * time.Hour))
	assert.True(t, l.Account().TradingHalted)

	// Next UTC day: window rolls, halt clears, daily P&L resets.
	l.RollWindow(day1.Add(24 * time.Hour))
	acct = l.Account()
	assert.False(t, acct.TradingHalted)
	assert.Zero(t, acct.DailyPnL)
}

func TestOperatorHaltSurvivesRollover(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger()
	l.Halt("operator stop")

	l.RollWindow(time.Now().Add(48 * time.Hour))
	assert.True(t, l.Account().TradingHalted, "only daily-loss halts clear on rollover")

	l.Resume()
	assert.False(t, l.Account().TradingHalted)
}

func TestDailyPnLExcludesUnrealized(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger()
	now := time.Now()

	p, err := l.OpenPending(longOrder(), "key-1", now)
	require.NoError(t, err)
	_, err = l.ConfirmFill(p.ID, "bt-1", 1.1000, 0, now)
	require.NoError(t, err)

	// Price moves in our favor: equity reflects it, daily P&L does not.
	l.Revalue(map[string]float64{"EUR_USD": 1.1200})
	acct := l.Account()
	assert.InDelta(t, 10020, acct.Equity, 1e-9)
	assert.Zero(t, acct.DailyPnL)
	assert.InDelta(t, 10000, acct.Balance, 1e-9)
}

func TestConfirmFillByOrderKey(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger()
	now := time.Now()

	p, err := l.OpenPending(longOrder(), "key-42", now)
	require.NoError(t, err)

	got, err := l.ConfirmFillByOrderKey("key-42", "bt-42", 1.1001, 0, now)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, StatusOpen, got.Status)

	_, err = l.ConfirmFillByOrderKey("missing", "bt-0", 1.1, 0, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExposuresAndView(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger()
	now := time.Now()

	_, err := l.OpenPending(longOrder(), "key-1", now)
	require.NoError(t, err)

	exp := l.Exposures()
	require.Len(t, exp, 1)
	assert.Equal(t, "EUR_USD", exp[0].Instrument)
	assert.InDelta(t, 1000, exp[0].Units, 1e-9)

	v := l.View()
	assert.InDelta(t, 10000, v.Equity, 1e-9)
	assert.False(t, v.TradingHalted)
}
