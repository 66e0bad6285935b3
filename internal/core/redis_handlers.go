package core

import (
	"fmt"
	"time"

	"led-service/internal/events"
	"led-service/internal/fsm"
)

// HandleRemotePress feeds a press received over Redis through the same
// debouncer as the physical buttons, stamped with the monotonic clock.
func (s *LedSystem) HandleRemotePress(input int) error {
	if input < 0 || input >= fsm.NumInputs {
		return fmt.Errorf("invalid remote input %d", input)
	}
	s.logger.Debugf("Remote press on input %d", input+1)
	s.bus.Publish(events.RemotePressEvent{Input: input, At: time.Now()})
	s.debouncer.OnEdge(input, s.clock())
	return nil
}
