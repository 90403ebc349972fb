package core

import "time"

type GateConfig struct {
	Interval time.Duration
}

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type Store interface {
	Poll(key string, cfg GateConfig) (Decision, error)
	DeleteInactiveGates(cutoff time.Time) (int, error)
	Close() error
}
