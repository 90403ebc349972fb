package core

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestManagerSameKeySharesGate(t *testing.T) {
	m, err := NewManager(time.Hour, time.Minute, time.Second)
	require.NoError(t, err)
	defer m.Close()

	assert.True(t, m.Allow("sensor-1"), "first poll for a key must pass")
	assert.False(t, m.Allow("sensor-1"), "second poll inside the interval must be blocked")
}

func TestManagerDifferentKeysIndependent(t *testing.T) {
	m, err := NewManager(time.Hour, time.Minute, time.Second)
	require.NoError(t, err)
	defer m.Close()

	assert.True(t, m.Allow("sensor-a"))
	assert.True(t, m.Allow("sensor-b"))
	assert.False(t, m.Allow("sensor-a"))
	assert.False(t, m.Allow("sensor-b"))
}

func TestManagerDecisionRetryAfter(t *testing.T) {
	clock := newFakeClock()
	m, err := NewManager(time.Second, time.Minute, time.Second, WithManagerClock(clock))
	require.NoError(t, err)
	defer m.Close()

	d, err := m.AllowDecision("display")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Zero(t, d.RetryAfter)

	clock.Advance(250 * time.Millisecond)
	d, err = m.AllowDecision("display")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 750*time.Millisecond, d.RetryAfter)

	clock.Advance(751 * time.Millisecond)
	assert.True(t, m.Allow("display"))
}

func TestManagerEmptyKey(t *testing.T) {
	m, err := NewManager(time.Second, time.Minute, time.Second)
	require.NoError(t, err)
	defer m.Close()

	_, err = m.AllowDecision("")
	require.Error(t, err)
	assert.False(t, m.Allow(""))
}

func TestManagerInvalidConfig(t *testing.T) {
	tests := []struct {
		name        string
		build       func() (*Manager, error)
		expectedErr string
	}{
		{
			name: "nil store",
			build: func() (*Manager, error) {
				return NewManagerWithStore(nil, time.Second, time.Minute, time.Second)
			},
			expectedErr: "store cannot be nil",
		},
		{
			name: "zero cleanup interval",
			build: func() (*Manager, error) {
				return NewManager(time.Second, time.Minute, 0)
			},
			expectedErr: "cleanup interval must be greater than 0",
		},
		{
			name: "negative gate ttl",
			build: func() (*Manager, error) {
				return NewManager(time.Second, -time.Minute, time.Second)
			},
			expectedErr: "gate TTL must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestManagerConcurrentPollsAcrossKeys(t *testing.T) {
	const (
		keys        = 10
		pollsPerKey = 20
	)

	m, err := NewManager(time.Hour, time.Minute, time.Second)
	require.NoError(t, err)
	defer m.Close()

	var wg sync.WaitGroup
	allowedByKey := make([]int64, keys)

	for i := range keys {
		key := fmt.Sprintf("sensor-%d", i)
		idx := i
		for range pollsPerKey {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if m.Allow(key) {
					atomic.AddInt64(&allowedByKey[idx], 1)
				}
			}()
		}
	}

	wg.Wait()

	for i := range keys {
		assert.Equal(t, int64(1), allowedByKey[i], "sensor-%d", i)
	}
}

func TestManagerCleanupRemovesIdleGates(t *testing.T) {
	clock := newFakeClock()
	obs, logs := observer.New(zap.DebugLevel)
	store := NewMemoryStore(clock)

	m, err := NewManagerWithStore(store, time.Hour, time.Minute, time.Hour,
		WithManagerClock(clock), WithLogger(zap.New(obs)))
	require.NoError(t, err)
	defer m.Close()

	require.True(t, m.Allow("idle"))
	clock.Advance(30 * time.Second)
	require.True(t, m.Allow("busy"))

	clock.Advance(45 * time.Second)
	m.Cleanup()

	assert.Equal(t, 1, store.Len())
	assert.False(t, m.Allow("busy"), "surviving gate keeps its baseline")
	assert.True(t, m.Allow("idle"), "removed gate starts over")

	entries := logs.FilterMessage("removed inactive gates").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["count"])
}

func TestManagerCleanupLoopRemovesIdleGates(t *testing.T) {
	store := NewMemoryStore()
	m, err := NewManagerWithStore(store, time.Hour, 30*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)
	defer m.Close()

	require.True(t, m.Allow("inactive"))

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 10*time.Millisecond)
}

type failingStore struct {
	*MemoryStore
	closed bool
}

func (s *failingStore) DeleteInactiveGates(time.Time) (int, error) {
	return 0, errors.New("store unavailable")
}

func (s *failingStore) Close() error {
	s.closed = true
	return errors.New("close failed")
}

func TestManagerLogsStoreFailures(t *testing.T) {
	obs, logs := observer.New(zap.WarnLevel)
	store := &failingStore{MemoryStore: NewMemoryStore()}

	m, err := NewManagerWithStore(store, time.Second, time.Minute, time.Hour, WithLogger(zap.New(obs)))
	require.NoError(t, err)

	m.Cleanup()
	m.Close()
	m.Close()

	assert.True(t, store.closed)
	assert.Equal(t, 1, logs.FilterMessage("gate cleanup failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("closing gate store").Len())
}

func TestManagerCleanupGoroutineDoesNotLeak(t *testing.T) {
	base := runtime.NumGoroutine()

	const managers = 30
	for range managers {
		m, err := NewManager(time.Second, time.Minute, 5*time.Millisecond)
		require.NoError(t, err)
		m.Close()
	}

	time.Sleep(50 * time.Millisecond)
	after := runtime.NumGoroutine()

	// allow small background scheduling jitter
	assert.LessOrEqual(t, after, base+5, "possible goroutine leak: before=%d after=%d", base, after)
}
