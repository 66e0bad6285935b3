package fsm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/librescoot/librefsm"

	"led-service/internal/logger"
)

// EventSource is the consumer end of the event queue. TryDequeue must not
// block and returns EvNone when nothing is pending.
type EventSource interface {
	TryDequeue() Event
}

// Sleeper paces the loop between ticks. It returns ctx.Err() if the
// context ends first.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Hook names passed to the hook-error callback.
const (
	HookEnter = "enter"
	HookDo    = "do"
	HookExit  = "exit"
)

type Option func(*Machine)

func WithSleeper(s Sleeper) Option {
	return func(m *Machine) { m.sleep = s }
}

func WithLogger(l *logger.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithStateChange registers a callback run on the loop goroutine after
// every real transition.
func WithStateChange(fn func(from, to State, ev Event)) Option {
	return func(m *Machine) { m.onChange = fn }
}

// WithHookError registers a callback for hook failures. Failures are
// otherwise only logged; the loop carries on and the next tick retries.
func WithHookError(fn func(s State, hook string, err error)) Option {
	return func(m *Machine) { m.onHookError = fn }
}

// Machine is the cooperative scheduler: one Do per tick, one sleep per
// tick, at most one event per tick. Exit/Enter sequencing on a real
// transition is delegated to a librefsm machine built from the same
// descriptors.
type Machine struct {
	states  []State
	table   Table
	initial StateID
	current atomic.Int64

	source      EventSource
	sleep       Sleeper
	logger      *logger.Logger
	onChange    func(from, to State, ev Event)
	onHookError func(s State, hook string, err error)

	sm      *librefsm.Machine
	started bool
}

// New validates the descriptors and table and prepares the machine. No
// hook runs until Start.
func New(states []State, table Table, initial StateID, source EventSource, opts ...Option) (*Machine, error) {
	if len(states) == 0 {
		return nil, errors.New("no states defined")
	}
	if source == nil {
		return nil, errors.New("nil event source")
	}
	seen := make(map[string]bool, len(states))
	for i, s := range states {
		if s.ID != StateID(i) {
			return nil, fmt.Errorf("state %q has id %d at index %d", s.Name, s.ID, i)
		}
		if s.Name == "" || seen[s.Name] {
			return nil, fmt.Errorf("state %d: name %q empty or duplicated", i, s.Name)
		}
		seen[s.Name] = true
		if s.Interval <= 0 {
			return nil, fmt.Errorf("state %q: interval must be positive, got %v", s.Name, s.Interval)
		}
	}
	if err := table.Validate(len(states)); err != nil {
		return nil, err
	}
	if initial < 0 || int(initial) >= len(states) {
		return nil, fmt.Errorf("initial state %d out of range", initial)
	}

	m := &Machine{
		states:  make([]State, len(states)),
		table:   table,
		initial: initial,
		source:  source,
		sleep:   SleepContext,
		logger:  logger.NewLogger(nil, logger.LogLevelNone),
	}
	copy(m.states, states)
	for i := range m.states {
		if m.states[i].Hooks == nil {
			m.states[i].Hooks = HookFuncs{}
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	m.current.Store(int64(initial))

	sm, err := m.definition().Build(librefsm.WithLogger(m.logger.Slog()))
	if err != nil {
		return nil, fmt.Errorf("failed to build state machine: %w", err)
	}
	m.sm = sm
	return m, nil
}

func (m *Machine) definition() *librefsm.Definition {
	def := librefsm.NewDefinition()
	for _, s := range m.states {
		s := s
		def.State(s.librefsmID(),
			librefsm.WithOnEnter(func(*librefsm.Context) error {
				m.runHook(s, HookEnter, s.Hooks.Enter)
				return nil
			}),
			librefsm.WithOnExit(func(*librefsm.Context) error {
				m.runHook(s, HookExit, s.Hooks.Exit)
				return nil
			}),
		)
	}
	for from, row := range m.table {
		for ev, to := range row {
			if Event(ev) == EvNone || to == StateID(from) {
				continue
			}
			def.Transition(m.states[from].librefsmID(), librefsm.EventID(Event(ev).String()), m.states[to].librefsmID())
		}
	}
	return def.Initial(m.states[m.initial].librefsmID())
}

// runHook never propagates the error: actuation failures are retried by
// the next tick, never escalated.
func (m *Machine) runHook(s State, hook string, fn func() error) {
	if err := fn(); err != nil {
		m.logger.Warnf("%s %s failed: %v", s.Name, hook, err)
		if m.onHookError != nil {
			m.onHookError(s, hook, err)
		}
	}
}

// Start enters the initial state. It is called by Run if needed.
func (m *Machine) Start(ctx context.Context) error {
	if m.started {
		return nil
	}
	m.current.Store(int64(m.initial))
	if err := m.sm.Start(ctx); err != nil {
		return fmt.Errorf("failed to enter initial state: %w", err)
	}
	m.started = true
	m.logger.Infof("Entered initial state %s", m.states[m.initial].Name)
	return nil
}

// Stop releases the underlying machine. Hooks are not run.
func (m *Machine) Stop() {
	if !m.started {
		return
	}
	m.started = false
	m.sm.Stop()
}

// Started reports whether the initial state has been entered and the
// machine not stopped since.
func (m *Machine) Started() bool { return m.started }

// Current returns the active state descriptor. Safe from any goroutine.
func (m *Machine) Current() State {
	return m.states[m.current.Load()]
}

func (m *Machine) States() []State {
	out := make([]State, len(m.states))
	copy(out, m.states)
	return out
}

// Step runs one tick: Do, pace, take at most one event, transition if the
// table says so. It returns an error only when the context ends during the
// pacing sleep or the transition itself cannot be applied.
func (m *Machine) Step(ctx context.Context) error {
	cur := m.Current()
	m.runHook(cur, HookDo, cur.Hooks.Do)

	if err := m.sleep(ctx, cur.Interval); err != nil {
		return err
	}

	ev := m.source.TryDequeue()
	next := m.table.Next(cur.ID, ev)
	if next == cur.ID {
		return nil
	}

	to := m.states[next]
	if err := m.sm.SetState(to.librefsmID()); err != nil {
		return fmt.Errorf("transition %s -> %s: %w", cur.Name, to.Name, err)
	}
	m.current.Store(int64(next))
	m.logger.Infof("State transition: %s -> %s (%s)", cur.Name, to.Name, ev)
	if m.onChange != nil {
		m.onChange(cur, to, ev)
	}
	return nil
}

// Run enters the initial state and ticks until ctx ends. Cancellation is a
// clean exit and returns nil.
func (m *Machine) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Stop()

	for {
		if err := m.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}
