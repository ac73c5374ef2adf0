package journal

import "sync"

// Memory is an in-process journal used by tests and the demo runner.
type Memory struct {
	mu     sync.Mutex
	Trades []TradeRecord
	Equity []EquitySnapshot
	Events []Event
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) RecordTrade(t TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Trades = append(m.Trades, t)
	return nil
}

func (m *Memory) RecordEquity(e EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Equity = append(m.Equity, e)
	return nil
}

func (m *Memory) RecordEvent(e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
	return nil
}

// EventsOfKind returns recorded events matching kind, oldest first.
func (m *Memory) EventsOfKind(kind string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (m *Memory) Close() error { return nil }
