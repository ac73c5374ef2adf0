package exec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/fxbot/broker"
	"github.com/rustyeddy/fxbot/broker/sim"
	"github.com/rustyeddy/fxbot/market"
)

func newAdapter(b broker.Broker) *Adapter {
	a := New(b, DefaultConfig())
	a.sleep = func(context.Context, time.Duration) error { return nil }
	return a
}

func seededSim() *sim.Broker {
	b := sim.New()
	b.SetTick(market.Tick{
		Instrument: "EUR_USD",
		Time:       time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Bid:        1.0999,
		Ask:        1.1001,
	})
	return b
}

func marketOrder() broker.OrderRequest {
	return broker.OrderRequest{
		Key:        NewOrderKey(),
		Instrument: "EUR_USD",
		Type:       broker.Market,
		Units:      1000,
	}
}

func TestSubmitRetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	b := seededSim()
	b.FailSubmits(2, broker.Transient)
	a := newAdapter(b)

	// Times out twice, succeeds on the third attempt with the same key:
	// exactly one order exists broker-side.
	err := a.Submit(context.Background(), marketOrder())
	require.NoError(t, err)
	assert.Equal(t, 3, b.SubmitCalls())
	assert.Equal(t, 1, b.OpenTrades())
}

func TestSubmitExhaustsRetries(t *testing.T) {
	t.Parallel()

	b := seededSim()
	b.FailSubmits(10, broker.Transient)
	a := newAdapter(b)

	err := a.Submit(context.Background(), marketOrder())
	require.Error(t, err)
	assert.True(t, broker.IsTransient(err))
	assert.Equal(t, 3, b.SubmitCalls(), "bounded attempt count")
	assert.Zero(t, b.OpenTrades())
}

func TestSubmitRejectedNotRetried(t *testing.T) {
	t.Parallel()

	b := seededSim()
	b.FailSubmits(1, broker.Rejected)
	a := newAdapter(b)

	err := a.Submit(context.Background(), marketOrder())
	assert.True(t, broker.IsRejected(err))
	assert.Equal(t, 1, b.SubmitCalls(), "rejections are decision outcomes, no retry")
	assert.False(t, a.CloseOnly())
}

func TestFatalErrorEntersCloseOnlyMode(t *testing.T) {
	t.Parallel()

	b := seededSim()
	b.FailSubmits(1, broker.Fatal)
	a := newAdapter(b)
	ctx := context.Background()

	err := a.Submit(ctx, marketOrder())
	assert.True(t, broker.IsFatal(err))
	assert.True(t, a.CloseOnly())

	// New submissions refused without touching the broker.
	calls := b.SubmitCalls()
	err = a.Submit(ctx, marketOrder())
	assert.True(t, broker.IsFatal(err))
	assert.Equal(t, calls, b.SubmitCalls())

	// Closes still go through: open a trade directly, then close via the
	// adapter while in close-only mode.
	require.NoError(t, b.SubmitOrder(ctx, marketOrder()))
	fills, err := b.PollFills(ctx)
	require.NoError(t, err)
	require.Len(t, fills, 1)

	_, err = a.Close(ctx, fills[0].TradeID)
	assert.NoError(t, err)

	a.ClearCloseOnly()
	assert.False(t, a.CloseOnly())
}

func TestCancelRetriesTransient(t *testing.T) {
	t.Parallel()

	b := seededSim()
	b.FailCancels(2, broker.Transient)
	a := newAdapter(b)

	// Two transient failures, success on the third attempt: the broker-side
	// order does not outlive the ledger's cancellation.
	err := a.Cancel(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, 3, b.CancelCalls())

	// Rejections surface immediately.
	b.FailCancels(1, broker.Rejected)
	err = a.Cancel(context.Background(), "key-2")
	assert.True(t, broker.IsRejected(err))
	assert.Equal(t, 4, b.CancelCalls())
}

func TestPollFillsAndGetTick(t *testing.T) {
	t.Parallel()

	b := seededSim()
	a := newAdapter(b)
	ctx := context.Background()

	require.NoError(t, a.Submit(ctx, marketOrder()))

	fills, err := a.PollFills(ctx)
	require.NoError(t, err)
	assert.Len(t, fills, 1)

	tick, err := a.GetTick(ctx, "EUR_USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0999, tick.Bid)
}

func TestBackoffIsBounded(t *testing.T) {
	t.Parallel()

	a := New(seededSim(), Config{
		MaxAttempts: 5,
		BackoffBase: 100 * time.Millisecond,
		BackoffMax:  300 * time.Millisecond,
		CallTimeout: time.Second,
	})

	for attempt := 1; attempt <= 5; attempt++ {
		d := a.backoff(attempt)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.Less(t, d, 400*time.Millisecond)
	}
}
