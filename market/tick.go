package market

import (
	"errors"
	"sync"
	"time"
)

// Tick is a timestamped bid/ask quote for one instrument.
type Tick struct {
	Instrument string
	Time       time.Time
	Bid        float64
	Ask        float64
}

func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

var ErrNoTick = errors.New("no tick for instrument")

// TickStore caches the latest tick per instrument.
type TickStore struct {
	mu    sync.RWMutex
	ticks map[string]Tick
}

func NewTickStore() *TickStore {
	return &TickStore{ticks: make(map[string]Tick)}
}

func (s *TickStore) Set(t Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks[t.Instrument] = t
}

func (s *TickStore) Get(instrument string) (Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.ticks[instrument]
	if !ok {
		return Tick{}, ErrNoTick
	}
	return t, nil
}
