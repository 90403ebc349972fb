package pollgate

import (
	"time"

	"github.com/carr-o-t/pollgate/internal/core"
	"github.com/carr-o-t/pollgate/internal/netinfo"
)

type Clock = core.Clock
type IntervalGate = core.IntervalGate
type SyncGate = core.SyncGate
type GateOption = core.GateOption
type Store = core.Store
type GateConfig = core.GateConfig
type Decision = core.Decision
type Manager = core.Manager
type ManagerOption = core.ManagerOption
type MemoryStore = core.MemoryStore

const DefaultWaitSlice = core.DefaultWaitSlice

var SystemClock = core.SystemClock

func NewIntervalGate(interval time.Duration, opts ...GateOption) *IntervalGate {
	return core.NewIntervalGate(interval, opts...)
}

func NewSyncGate(interval time.Duration, opts ...GateOption) *SyncGate {
	return core.NewSyncGate(interval, opts...)
}

func WithClock(clock Clock) GateOption {
	return core.WithClock(clock)
}

func NewMemoryStore(clock ...Clock) *MemoryStore {
	return core.NewMemoryStore(clock...)
}

func NewManager(
	interval time.Duration,
	gateTTL time.Duration,
	cleanupInterval time.Duration,
	opts ...ManagerOption,
) (*Manager, error) {
	return core.NewManager(interval, gateTTL, cleanupInterval, opts...)
}

func NewManagerWithStore(
	store Store,
	interval time.Duration,
	gateTTL time.Duration,
	cleanupInterval time.Duration,
	opts ...ManagerOption,
) (*Manager, error) {
	return core.NewManagerWithStore(store, interval, gateTTL, cleanupInterval, opts...)
}

// InterfaceAddress returns the IPv4 address of the named network interface,
// or "--.--.--" when it cannot be determined.
func InterfaceAddress(name string) string {
	return netinfo.InterfaceAddress(name)
}
