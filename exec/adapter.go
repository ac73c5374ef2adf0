// Package exec drives orders against the broker boundary, treating it as
// unreliable: transient failures are retried with bounded backoff under the
// same idempotency key, rejections surface immediately, and fatal failures
// flip the adapter into close-only mode.
package exec

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rustyeddy/fxbot/broker"
	"github.com/rustyeddy/fxbot/logx"
	"github.com/rustyeddy/fxbot/market"
)

var errSubmissionsHalted = errors.New("submissions halted, close-only mode")

// NewOrderKey returns a fresh idempotency key for one order submission. The
// same key is reused across retries of that submission, never across orders.
func NewOrderKey() string {
	return uuid.NewString()
}

type Config struct {
	MaxAttempts int           // submission attempts before giving up
	BackoffBase time.Duration // first retry delay, doubled each attempt
	BackoffMax  time.Duration
	CallTimeout time.Duration // per broker call
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BackoffBase: 250 * time.Millisecond,
		BackoffMax:  5 * time.Second,
		CallTimeout: 10 * time.Second,
	}
}

type Adapter struct {
	b         broker.Broker
	cfg       Config
	closeOnly atomic.Bool
	log       *slog.Logger

	// sleep is swappable so tests do not wait out real backoff delays.
	sleep func(context.Context, time.Duration) error
}

func New(b broker.Broker, cfg Config) *Adapter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Adapter{
		b:     b,
		cfg:   cfg,
		log:   logx.Named("exec"),
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CloseOnly reports whether a fatal broker error has halted new submissions.
func (a *Adapter) CloseOnly() bool {
	return a.closeOnly.Load()
}

// ClearCloseOnly re-enables submissions after external intervention.
func (a *Adapter) ClearCloseOnly() {
	a.closeOnly.Store(false)
}

func (a *Adapter) escalate(err error) {
	if broker.IsFatal(err) && !a.closeOnly.Swap(true) {
		a.log.Error("fatal broker error, submissions halted", "error", err)
	}
}

func (a *Adapter) call(ctx context.Context, f func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
	defer cancel()
	return f(cctx)
}

// Submit places req, retrying transient failures up to the attempt bound with
// exponential backoff and jitter. Every attempt carries req.Key, so a retry
// after a timed-out-but-actually-successful submission cannot double-place.
func (a *Adapter) Submit(ctx context.Context, req broker.OrderRequest) error {
	if a.CloseOnly() {
		return broker.NewError(broker.Fatal, "submit", errSubmissionsHalted)
	}

	var err error
	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		err = a.call(ctx, func(c context.Context) error {
			return a.b.SubmitOrder(c, req)
		})
		if err == nil {
			return nil
		}
		if broker.IsRejected(err) {
			return err
		}
		if broker.IsFatal(err) {
			a.escalate(err)
			return err
		}
		if attempt == a.cfg.MaxAttempts {
			break
		}

		delay := a.backoff(attempt)
		a.log.Warn("submit failed, retrying",
			"instrument", req.Instrument, "key", req.Key,
			"attempt", attempt, "delay", delay, "error", err)
		if serr := a.sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return err
}

func (a *Adapter) backoff(attempt int) time.Duration {
	d := a.cfg.BackoffBase << (attempt - 1)
	if d > a.cfg.BackoffMax {
		d = a.cfg.BackoffMax
	}
	// Jitter spreads retries so concurrent cycles do not hammer in lockstep.
	return d + time.Duration(rand.Int63n(int64(d)/4+1))
}

// Cancel withdraws a pending order by its idempotency key. Transient
// failures are retried like submissions: a cancel the broker never received
// leaves the order live while the ledger already wrote it off.
func (a *Adapter) Cancel(ctx context.Context, key string) error {
	var err error
	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		err = a.call(ctx, func(c context.Context) error {
			return a.b.CancelOrder(c, key)
		})
		if err == nil || broker.IsRejected(err) {
			return err
		}
		if broker.IsFatal(err) {
			a.escalate(err)
			return err
		}
		if attempt == a.cfg.MaxAttempts {
			break
		}
		if serr := a.sleep(ctx, a.backoff(attempt)); serr != nil {
			return serr
		}
	}
	return err
}

// Close closes a broker-side trade. Permitted even in close-only mode:
// existing positions stay protected after a fatal error.
func (a *Adapter) Close(ctx context.Context, tradeID string) (broker.Fill, error) {
	var fill broker.Fill
	var err error
	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		err = a.call(ctx, func(c context.Context) error {
			var cerr error
			fill, cerr = a.b.ClosePosition(c, tradeID)
			return cerr
		})
		if err == nil || broker.IsRejected(err) {
			return fill, err
		}
		if broker.IsFatal(err) {
			a.escalate(err)
			return fill, err
		}
		if attempt == a.cfg.MaxAttempts {
			break
		}
		if serr := a.sleep(ctx, a.backoff(attempt)); serr != nil {
			return fill, serr
		}
	}
	return fill, err
}

// PollFills fetches fills reported since the last poll.
func (a *Adapter) PollFills(ctx context.Context) ([]broker.Fill, error) {
	var fills []broker.Fill
	err := a.call(ctx, func(c context.Context) error {
		var perr error
		fills, perr = a.b.PollFills(c)
		return perr
	})
	a.escalate(err)
	return fills, err
}

// GetTick fetches the current quote for an instrument.
func (a *Adapter) GetTick(ctx context.Context, instrument string) (market.Tick, error) {
	var tick market.Tick
	err := a.call(ctx, func(c context.Context) error {
		var terr error
		tick, terr = a.b.GetTick(c, instrument)
		return terr
	})
	a.escalate(err)
	return tick, err
}
