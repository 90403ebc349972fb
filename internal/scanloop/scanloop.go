// Package scanloop drives a set of interval gates against a hardware action.
//
// Gates in poll mode share one fast scan loop: every tick each gate is
// polled and the action runs only for gates that are due. Gates in wait
// mode each get their own producer loop that blocks on the gate between
// actions.
package scanloop

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/carr-o-t/pollgate/internal/core"
)

type Mode string

const (
	ModePoll Mode = "poll"
	ModeWait Mode = "wait"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePoll, "":
		return ModePoll, nil
	case ModeWait:
		return ModeWait, nil
	default:
		return "", fmt.Errorf("unknown gate mode %q", s)
	}
}

type GateSpec struct {
	Name     string
	Interval time.Duration
	Mode     Mode
}

// Action is the guarded hardware operation. Errors are logged and counted;
// they do not stop the loop.
type Action func(ctx context.Context, gate string) error

type GateStats struct {
	Permits int64
	Errors  int64
}

type gateState struct {
	spec     GateSpec
	gate     *core.IntervalGate
	permits  atomic.Int64
	failures atomic.Int64
}

type Runner struct {
	tick   time.Duration
	action Action
	clock  core.Clock
	logger *zap.Logger

	poll  []*gateState
	wait  []*gateState
	byKey map[string]*gateState
}

type Option func(*Runner)

func WithClock(clock core.Clock) Option {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func New(specs []GateSpec, tick time.Duration, action Action, opts ...Option) (*Runner, error) {
	if len(specs) == 0 {
		return nil, errors.New("at least one gate is required")
	}
	if tick <= 0 {
		return nil, errors.New("scan tick must be greater than 0")
	}
	if action == nil {
		return nil, errors.New("action cannot be nil")
	}

	r := &Runner{
		tick:   tick,
		action: action,
		clock:  core.SystemClock,
		logger: zap.NewNop(),
		byKey:  make(map[string]*gateState, len(specs)),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, spec := range specs {
		if spec.Name == "" {
			return nil, errors.New("gate name cannot be empty")
		}
		if _, dup := r.byKey[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate gate %q", spec.Name)
		}
		mode, err := ParseMode(string(spec.Mode))
		if err != nil {
			return nil, fmt.Errorf("gate %q: %w", spec.Name, err)
		}
		spec.Mode = mode

		st := &gateState{
			spec: spec,
			gate: core.NewIntervalGate(spec.Interval, core.WithClock(r.clock)),
		}
		r.byKey[spec.Name] = st
		if mode == ModeWait {
			r.wait = append(r.wait, st)
		} else {
			r.poll = append(r.poll, st)
		}
	}
	return r, nil
}

// Run blocks until ctx is done. Cancellation is a clean stop; a panic in
// the action is returned as an error once every loop has exited.
func (r *Runner) Run(ctx context.Context) error {
	log := r.logger.With(zap.String("run_id", uuid.NewString()))
	log.Info("scan loop starting",
		zap.Int("poll_gates", len(r.poll)),
		zap.Int("wait_gates", len(r.wait)),
		zap.Duration("tick", r.tick))

	var wg conc.WaitGroup
	if len(r.poll) > 0 {
		wg.Go(func() { r.scan(ctx, log) })
	}
	for _, st := range r.wait {
		wg.Go(func() { r.produce(ctx, log, st) })
	}

	recovered := wg.WaitAndRecover()
	log.Info("scan loop stopped")
	if recovered != nil {
		return fmt.Errorf("scan loop: %w", recovered.AsError())
	}
	return nil
}

func (r *Runner) scan(ctx context.Context, log *zap.Logger) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		for _, st := range r.poll {
			if st.gate.Poll() {
				r.fire(ctx, log, st)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) produce(ctx context.Context, log *zap.Logger, st *gateState) {
	for {
		before, _ := st.gate.Baseline()
		if err := st.gate.WaitContext(ctx); err != nil {
			return
		}
		// an already-open gate returns without moving the baseline; restart
		// the interval here or every later wait would return at once
		if after, ok := st.gate.Baseline(); ok && after.Equal(before) {
			st.gate.Poll()
		}
		r.fire(ctx, log, st)
	}
}

func (r *Runner) fire(ctx context.Context, log *zap.Logger, st *gateState) {
	st.permits.Add(1)
	if err := r.action(ctx, st.spec.Name); err != nil {
		st.failures.Add(1)
		log.Warn("gated action failed", zap.String("gate", st.spec.Name), zap.Error(err))
		return
	}
	log.Debug("gated action ran", zap.String("gate", st.spec.Name))
}

// Stats returns a snapshot of permit and error counts per gate name.
func (r *Runner) Stats() map[string]GateStats {
	out := make(map[string]GateStats, len(r.byKey))
	for name, st := range r.byKey {
		out[name] = GateStats{
			Permits: st.permits.Load(),
			Errors:  st.failures.Load(),
		}
	}
	return out
}
