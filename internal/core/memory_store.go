package core

import (
	"errors"
	"sync"
	"time"
)

type memoryEntry struct {
	gate     *IntervalGate
	lastSeen time.Time
}

// MemoryStore keeps one independent gate per key. A gate's interval is
// fixed by the config of the first poll for its key.
type MemoryStore struct {
	mu    sync.Mutex
	clock Clock
	gates map[string]*memoryEntry
}

func NewMemoryStore(clock ...Clock) *MemoryStore {
	c := SystemClock
	if len(clock) > 0 && clock[0] != nil {
		c = clock[0]
	}
	return &MemoryStore{
		clock: c,
		gates: make(map[string]*memoryEntry),
	}
}

func (s *MemoryStore) Poll(key string, cfg GateConfig) (Decision, error) {
	if key == "" {
		return Decision{}, errors.New("key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.gates[key]
	if !ok {
		entry = &memoryEntry{gate: NewIntervalGate(cfg.Interval, WithClock(s.clock))}
		s.gates[key] = entry
	}
	entry.lastSeen = s.clock.Now()

	if entry.gate.Poll() {
		return Decision{Allowed: true}, nil
	}
	return Decision{RetryAfter: entry.gate.Remaining()}, nil
}

func (s *MemoryStore) DeleteInactiveGates(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.gates {
		if entry.lastSeen.Before(cutoff) {
			delete(s.gates, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.gates)
}

func (s *MemoryStore) Close() error {
	return nil
}
