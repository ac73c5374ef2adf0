// Package sim is an in-memory paper broker. It fills market orders at the
// current quote, reports fills asynchronously through PollFills, and supports
// failure injection for exercising the execution adapter's retry paths.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rustyeddy/fxbot/broker"
	"github.com/rustyeddy/fxbot/internal/id"
	"github.com/rustyeddy/fxbot/market"
)

type trade struct {
	id         string
	instrument string
	units      float64
	entry      float64
	openTime   time.Time
}

// Broker is the paper implementation of broker.Broker.
type Broker struct {
	mu     sync.Mutex
	ticks  *market.TickStore
	orders map[string]broker.Fill // by idempotency key, filled orders
	trades map[string]*trade
	queue  []broker.Fill // fills not yet polled

	history map[string][]market.Candle

	// Failure injection for tests: the next N submissions or cancels fail
	// with the given class before any order is touched.
	failSubmits int
	failClass   broker.Class
	submitCalls int
	failCancels int
	cancelClass broker.Class
	cancelCalls int

	rng *rand.Rand
}

func New() *Broker {
	return &Broker{
		ticks:   market.NewTickStore(),
		orders:  make(map[string]broker.Fill),
		trades:  make(map[string]*trade),
		history: make(map[string][]market.Candle),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetTick updates the current quote and appends to the candle history.
func (b *Broker) SetTick(t market.Tick) {
	b.ticks.Set(t)

	b.mu.Lock()
	defer b.mu.Unlock()
	mid := t.Mid()
	b.history[t.Instrument] = append(b.history[t.Instrument], market.Candle{
		Time: t.Time, Open: mid, High: t.Ask, Low: t.Bid, Close: mid,
	})
}

// FailSubmits makes the next n SubmitOrder calls fail with class.
func (b *Broker) FailSubmits(n int, class broker.Class) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failSubmits = n
	b.failClass = class
}

// FailCancels makes the next n CancelOrder calls fail with class.
func (b *Broker) FailCancels(n int, class broker.Class) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failCancels = n
	b.cancelClass = class
}

// CancelCalls reports how many times CancelOrder was invoked.
func (b *Broker) CancelCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelCalls
}

// SubmitCalls reports how many times SubmitOrder was invoked, including the
// injected failures.
func (b *Broker) SubmitCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submitCalls
}

// OpenTrades reports the number of broker-side open trades.
func (b *Broker) OpenTrades() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.trades)
}

func (b *Broker) GetTick(ctx context.Context, instrument string) (market.Tick, error) {
	if err := ctx.Err(); err != nil {
		return market.Tick{}, broker.NewError(broker.Transient, "get tick", err)
	}
	t, err := b.ticks.Get(instrument)
	if err != nil {
		return market.Tick{}, broker.NewError(broker.Transient, "get tick", err)
	}
	return t, nil
}

// GetCandles serves the recorded tick history as a candle window, so the sim
// broker doubles as the data collaborator in demo runs.
func (b *Broker) GetCandles(ctx context.Context, instrument string, _ market.Timeframe, n int) ([]market.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.history[instrument]
	if len(h) > n {
		h = h[len(h)-n:]
	}
	out := make([]market.Candle, len(h))
	copy(out, h)
	return out, nil
}

// SubmitOrder fills a market order at the current quote and queues the fill
// for the next poll. Resubmitting an already-filled idempotency key is a
// no-op, not a second order.
func (b *Broker) SubmitOrder(ctx context.Context, req broker.OrderRequest) error {
	if err := ctx.Err(); err != nil {
		return broker.NewError(broker.Transient, "submit", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitCalls++

	if b.failSubmits > 0 {
		b.failSubmits--
		return broker.NewError(b.failClass, "submit", errors.New("injected failure"))
	}

	if req.Key == "" {
		return broker.NewError(broker.Rejected, "submit", errors.New("missing idempotency key"))
	}
	if _, done := b.orders[req.Key]; done {
		return nil
	}
	if req.Units == 0 {
		return broker.NewError(broker.Rejected, "submit", errors.New("zero units"))
	}

	tick, err := b.ticks.Get(req.Instrument)
	if err != nil {
		return broker.NewError(broker.Rejected, "submit", fmt.Errorf("unknown instrument %q", req.Instrument))
	}

	price := tick.Ask
	if req.Units < 0 {
		price = tick.Bid
	}

	tr := &trade{
		id:         id.New(),
		instrument: req.Instrument,
		units:      req.Units,
		entry:      price,
		openTime:   tick.Time,
	}
	b.trades[tr.id] = tr

	fill := broker.Fill{
		OrderKey:   req.Key,
		TradeID:    tr.id,
		Instrument: req.Instrument,
		Units:      req.Units,
		Price:      price,
		Time:       tick.Time,
	}
	b.orders[req.Key] = fill
	b.queue = append(b.queue, fill)
	return nil
}

func (b *Broker) CancelOrder(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return broker.NewError(broker.Transient, "cancel", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelCalls++

	if b.failCancels > 0 {
		b.failCancels--
		return broker.NewError(b.cancelClass, "cancel", errors.New("injected failure"))
	}
	// Market orders fill immediately in the sim; cancelling an unknown or
	// already-filled key is a no-op, matching broker cancel semantics.
	return nil
}

// ClosePosition closes a broker-side trade at the current quote.
func (b *Broker) ClosePosition(ctx context.Context, tradeID string) (broker.Fill, error) {
	if err := ctx.Err(); err != nil {
		return broker.Fill{}, broker.NewError(broker.Transient, "close", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tr, ok := b.trades[tradeID]
	if !ok {
		return broker.Fill{}, broker.NewError(broker.Rejected, "close", fmt.Errorf("trade %q not found", tradeID))
	}

	tick, err := b.ticks.Get(tr.instrument)
	if err != nil {
		return broker.Fill{}, broker.NewError(broker.Transient, "close", err)
	}

	// Longs close on bid, shorts on ask.
	price := tick.Bid
	if tr.units < 0 {
		price = tick.Ask
	}
	delete(b.trades, tradeID)

	return broker.Fill{
		TradeID:    tradeID,
		Instrument: tr.instrument,
		Units:      -tr.units,
		Price:      price,
		Time:       tick.Time,
	}, nil
}

// PollFills drains the queue of unreported fills.
func (b *Broker) PollFills(ctx context.Context) ([]broker.Fill, error) {
	if err := ctx.Err(); err != nil {
		return nil, broker.NewError(broker.Transient, "poll fills", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.queue
	b.queue = nil
	return out, nil
}

// Step applies a small random walk to every seeded instrument, driving demo
// runs. Spread is kept at one pip around the mid.
func (b *Broker) Step(now time.Time) {
	b.mu.Lock()
	instruments := make([]string, 0, len(b.history))
	for name := range b.history {
		instruments = append(instruments, name)
	}
	rng := b.rng
	b.mu.Unlock()

	for _, name := range instruments {
		t, err := b.ticks.Get(name)
		if err != nil {
			continue
		}
		mid := t.Mid() * (1 + (rng.Float64()-0.5)*0.002)
		pip := math.Pow(10, float64(market.Instruments[name].PipLocation))
		b.SetTick(market.Tick{
			Instrument: name,
			Time:       now,
			Bid:        mid - pip/2,
			Ask:        mid + pip/2,
		})
	}
}
