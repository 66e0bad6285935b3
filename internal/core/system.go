// File: internal/core/system.go
package core

import (
	"context"
	"fmt"
	"sync"

	"led-service/internal/actuator"
	"led-service/internal/config"
	"led-service/internal/debounce"
	"led-service/internal/events"
	"led-service/internal/fsm"
	"led-service/internal/hardware"
	"led-service/internal/logger"
	"led-service/internal/messaging"
	"led-service/internal/metrics"
	"led-service/internal/queue"
)

// LedSystem owns the event queue, the debouncer and the state machine.
// Edge handlers only debounce and enqueue; everything else runs on the
// scheduler loop or on the event bus.
type LedSystem struct {
	logger  *logger.Logger
	cfg     *config.Config
	profile fsm.Profile

	io    HardwareIO
	pwm   actuator.DutyCycle
	redis MessagingClient

	queue     *queue.Queue[fsm.Event]
	debouncer *debounce.Debouncer
	machine   *fsm.Machine
	bus       *events.Bus
	metrics   *metrics.Metrics

	clock   func() int64
	sleeper fsm.Sleeper
	unsubs  []func()

	shutdownOnce sync.Once
}

type Option func(*LedSystem)

// WithMessaging enables Redis state publication and remote presses.
func WithMessaging(m MessagingClient) Option {
	return func(s *LedSystem) { s.redis = m }
}

// WithClock replaces the monotonic millisecond clock used for remote presses.
func WithClock(clock func() int64) Option {
	return func(s *LedSystem) { s.clock = clock }
}

// WithSleeper replaces the scheduler's pacing sleep.
func WithSleeper(sl fsm.Sleeper) Option {
	return func(s *LedSystem) { s.sleeper = sl }
}

// NewLedSystem builds the controller for the configured profile. pwm may be
// nil when the profile has no breathing state.
func NewLedSystem(cfg *config.Config, io HardwareIO, pwm actuator.DutyCycle, l *logger.Logger, opts ...Option) (*LedSystem, error) {
	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}

	s := &LedSystem{
		logger:  l,
		cfg:     cfg,
		profile: profile,
		io:      io,
		pwm:     pwm,
		queue:   queue.New(cfg.Queue.Capacity, fsm.EvNone),
		bus:     events.New(),
		clock:   hardware.NowMs,
		sleeper: fsm.SleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.debouncer = debounce.New(cfg.DebounceWindow(), s.queue)

	states, err := s.buildStates()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(states))
	for i, st := range states {
		names[i] = st.Name
	}
	s.metrics = metrics.New(s.queue, s.debouncer, names)

	s.machine, err = fsm.New(states, profile.Table, profile.Initial, s.queue,
		fsm.WithLogger(l.WithTag("FSM")),
		fsm.WithSleeper(s.sleeper),
		fsm.WithStateChange(s.onStateChange),
		fsm.WithHookError(s.onHookError),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build state machine: %w", err)
	}
	return s, nil
}

// Start claims the hardware, connects messaging and enters the initial
// state. Any error here is a startup failure.
func (s *LedSystem) Start(ctx context.Context) error {
	s.logger.Infof("Starting LED system with profile %s", s.profile.Name)

	if err := s.io.Initialize(s.HandleEdge); err != nil {
		return fmt.Errorf("failed to initialize hardware: %w", err)
	}

	s.subscribe()

	if s.redis != nil {
		s.redis.SetCallbacks(messaging.Callbacks{
			PressCallback: s.HandleRemotePress,
		})
		if err := s.redis.Connect(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		if err := s.redis.PublishProfile(s.profile.Name, s.stateNames()); err != nil {
			s.logger.Warnf("Failed to publish profile: %v", err)
		}
	}

	if err := s.machine.Start(ctx); err != nil {
		return err
	}
	initial := s.machine.Current()
	s.metrics.SetState(initial.Name)
	if s.redis != nil {
		if err := s.redis.PublishState(initial.Name, "start"); err != nil {
			s.logger.Warnf("Failed to publish initial state: %v", err)
		}
		if err := s.redis.StartListening(); err != nil {
			return fmt.Errorf("failed to start Redis listeners: %w", err)
		}
	}
	return nil
}

// Run ticks the scheduler until ctx ends.
func (s *LedSystem) Run(ctx context.Context) error {
	return s.machine.Run(ctx)
}

// Shutdown leaves the current state, turns every output off and releases
// hardware and connections. Later calls are no-ops.
func (s *LedSystem) Shutdown() {
	s.shutdownOnce.Do(s.shutdown)
}

func (s *LedSystem) shutdown() {
	s.logger.Infof("Shutting down LED system")

	// Exit only pairs with an Enter that ran
	if s.machine.Started() {
		s.machine.Stop()
		cur := s.machine.Current()
		if err := cur.Hooks.Exit(); err != nil {
			s.logger.Warnf("Failed to leave %s: %v", cur.Name, err)
		}
	}
	if err := s.io.SetAll(false); err != nil {
		s.logger.Warnf("Failed to turn LEDs off: %v", err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warnf("Failed to close Redis client: %v", err)
		}
	}
	s.io.Cleanup()

	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	if err := s.bus.Close(); err != nil {
		s.logger.Warnf("Failed to close event bus: %v", err)
	}

	s.logger.Infof("Dropped %d events, suppressed %d bounces", s.queue.Dropped(), s.debouncer.Suppressed())
}

// HandleEdge is the hardware edge callback. It must stay non-blocking.
func (s *LedSystem) HandleEdge(input int, nowMs int64) {
	s.debouncer.OnEdge(input, nowMs)
}

func (s *LedSystem) Metrics() *metrics.Metrics { return s.metrics }

func (s *LedSystem) Bus() *events.Bus { return s.bus }

func (s *LedSystem) Profile() fsm.Profile { return s.profile }

func (s *LedSystem) CurrentState() fsm.State { return s.machine.Current() }

func (s *LedSystem) stateNames() []string {
	names := make([]string, len(s.profile.States))
	for i, st := range s.profile.States {
		names[i] = st.Name
	}
	return names
}
