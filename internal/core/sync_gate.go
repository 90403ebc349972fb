package core

import (
	"context"
	"sync"
	"time"
)

// SyncGate serializes every call on an IntervalGate behind a mutex. The
// lock is held across the sleep, so concurrent waiters queue up and each
// measures from the baseline the previous one left.
type SyncGate struct {
	mu   sync.Mutex
	gate *IntervalGate
}

func NewSyncGate(interval time.Duration, opts ...GateOption) *SyncGate {
	return &SyncGate{gate: NewIntervalGate(interval, opts...)}
}

func (s *SyncGate) Interval() time.Duration {
	return s.gate.Interval()
}

func (s *SyncGate) Poll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Poll()
}

func (s *SyncGate) WaitUntilReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate.WaitUntilReady()
}

func (s *SyncGate) WaitContext(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.WaitContext(ctx)
}

func (s *SyncGate) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Remaining()
}

func (s *SyncGate) Baseline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Baseline()
}
