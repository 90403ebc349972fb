package core

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager hands out per-key gates sharing one interval, e.g. one gate per
// sensor on a bus, and drops gates that have not been polled for gateTTL.
type Manager struct {
	store    Store
	interval time.Duration

	gateTTL         time.Duration
	cleanupInterval time.Duration

	clock  Clock
	logger *zap.Logger

	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

type managerOptions struct {
	clock  Clock
	logger *zap.Logger
}

type ManagerOption func(*managerOptions)

func WithManagerClock(clock Clock) ManagerOption {
	return func(o *managerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func WithLogger(logger *zap.Logger) ManagerOption {
	return func(o *managerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildManagerOptions(opts []ManagerOption) managerOptions {
	o := managerOptions{
		clock:  SystemClock,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewManager(
	interval time.Duration,
	gateTTL time.Duration,
	cleanupInterval time.Duration,
	opts ...ManagerOption,
) (*Manager, error) {
	o := buildManagerOptions(opts)
	return newManager(NewMemoryStore(o.clock), interval, gateTTL, cleanupInterval, o)
}

func NewManagerWithStore(
	store Store,
	interval time.Duration,
	gateTTL time.Duration,
	cleanupInterval time.Duration,
	opts ...ManagerOption,
) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	return newManager(store, interval, gateTTL, cleanupInterval, buildManagerOptions(opts))
}

func newManager(
	store Store,
	interval time.Duration,
	gateTTL time.Duration,
	cleanupInterval time.Duration,
	o managerOptions,
) (*Manager, error) {
	if cleanupInterval <= 0 {
		return nil, errors.New("cleanup interval must be greater than 0")
	}
	if gateTTL <= 0 {
		return nil, errors.New("gate TTL must be greater than 0")
	}

	m := &Manager{
		store:           store,
		interval:        interval,
		gateTTL:         gateTTL,
		cleanupInterval: cleanupInterval,
		clock:           o.clock,
		logger:          o.logger,
		stopCh:          make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop()
	return m, nil
}

func (m *Manager) Interval() time.Duration {
	return m.interval
}

func (m *Manager) Allow(key string) bool {
	decision, err := m.AllowDecision(key)
	if err != nil {
		return false
	}
	return decision.Allowed
}

func (m *Manager) AllowDecision(key string) (Decision, error) {
	return m.store.Poll(key, GateConfig{Interval: m.interval})
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Cleanup()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
		if err := m.store.Close(); err != nil {
			m.logger.Warn("closing gate store", zap.Error(err))
		}
	})
}

func (m *Manager) Close() {
	m.Stop()
}

func (m *Manager) Cleanup() {
	cutoff := m.clock.Now().Add(-m.gateTTL)
	removed, err := m.store.DeleteInactiveGates(cutoff)
	if err != nil {
		m.logger.Warn("gate cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		m.logger.Debug("removed inactive gates", zap.Int("count", removed), zap.Time("cutoff", cutoff))
	}
}
