package core

import (
	"led-service/internal/actuator"
	"led-service/internal/fsm"
)

// buildStates binds an actuator to each state of the profile. Each state
// gets its own actuator, so two states with the same behaviour keep
// separate cursors.
func (s *LedSystem) buildStates() ([]fsm.State, error) {
	rc := actuator.RampConfig{
		Step: s.cfg.PWM.Step,
		Max:  s.cfg.PWM.Max,
	}

	var bindErr error
	states := s.profile.Bind(func(spec fsm.StateSpec) fsm.Hooks {
		h, err := actuator.Hooks(spec, s.io, s.pwm, rc)
		if err != nil && bindErr == nil {
			bindErr = err
		}
		return h
	})
	if bindErr != nil {
		return nil, bindErr
	}

	for _, st := range states {
		s.logger.Debugf("State %s: %s every %v", st.Name, behaviorOf(s.profile, st.ID), st.Interval)
	}
	return states, nil
}

func behaviorOf(p fsm.Profile, id fsm.StateID) fsm.Behavior {
	return p.States[id].Behavior
}
