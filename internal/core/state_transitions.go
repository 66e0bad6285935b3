package core

import (
	"time"

	"led-service/internal/events"
	"led-service/internal/fsm"
)

// onStateChange runs on the scheduler loop right after Enter of the new
// state. Publication happens on the bus so Redis latency never paces a tick.
func (s *LedSystem) onStateChange(from, to fsm.State, ev fsm.Event) {
	s.bus.Publish(events.StateChangedEvent{
		From:  from.Name,
		To:    to.Name,
		Event: ev.String(),
		At:    time.Now(),
	})
}

func (s *LedSystem) onHookError(st fsm.State, hook string, err error) {
	s.bus.Publish(events.HookFailedEvent{
		State: st.Name,
		Hook:  hook,
		Err:   err.Error(),
		At:    time.Now(),
	})
}

// subscribe wires bus events to metrics and Redis.
func (s *LedSystem) subscribe() {
	s.unsubs = append(s.unsubs,
		s.bus.Subscribe(func(e events.StateChangedEvent) {
			s.metrics.ObserveTransition(e.From, e.To, e.Event)
			if s.redis == nil {
				return
			}
			if err := s.redis.PublishState(e.To, e.Event); err != nil {
				s.logger.Warnf("Failed to publish state %s: %v", e.To, err)
			}
		}),
		s.bus.Subscribe(func(e events.HookFailedEvent) {
			s.metrics.ObserveHookFailure(e.State, e.Hook)
			if s.redis == nil {
				return
			}
			if err := s.redis.ReportHookFailure(e.State, e.Hook, e.Err); err != nil {
				s.logger.Warnf("Failed to report hook failure: %v", err)
			}
		}),
		s.bus.Subscribe(func(e events.RemotePressEvent) {
			s.metrics.ObserveRemotePress()
		}),
	)
}
