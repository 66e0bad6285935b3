// Package actuator holds the per-state LED behaviours. Each type implements
// fsm.Hooks; its cursor lives in the value and is reset only by Enter.
package actuator

import (
	"fmt"

	"led-service/internal/fsm"
	"led-service/internal/ramp"
)

// DigitalBank is a fixed set of on/off outputs.
type DigitalBank interface {
	Count() int
	Set(index int, on bool) error
	SetAll(on bool) error
}

// DutyCycle is a hardware PWM generator attached to one of the bank's
// outputs. While engaged that output is not under digital control.
type DutyCycle interface {
	Engage() error
	SetLevel(level uint32) error
	Disengage() error
}

// Rotator lights exactly one output per tick and moves the cursor one
// position, forward from the first output or backward from the last.
type Rotator struct {
	bank     DigitalBank
	backward bool
	cursor   int
}

func NewRotator(bank DigitalBank, backward bool) *Rotator {
	r := &Rotator{bank: bank, backward: backward}
	r.cursor = r.start()
	return r
}

func (r *Rotator) start() int {
	if r.backward {
		return r.bank.Count() - 1
	}
	return 0
}

func (r *Rotator) Enter() error {
	r.cursor = r.start()
	return r.bank.SetAll(false)
}

func (r *Rotator) Do() error {
	n := r.bank.Count()
	if n == 0 {
		return nil
	}
	if err := r.bank.SetAll(false); err != nil {
		return err
	}
	if err := r.bank.Set(r.cursor, true); err != nil {
		return err
	}
	if r.backward {
		r.cursor = (r.cursor - 1 + n) % n
	} else {
		r.cursor = (r.cursor + 1) % n
	}
	return nil
}

func (r *Rotator) Exit() error {
	return r.bank.SetAll(false)
}

// Cursor is the output the next Do will light.
func (r *Rotator) Cursor() int { return r.cursor }

// Toggler switches every output together, on then off.
type Toggler struct {
	bank DigitalBank
	on   bool
}

func NewToggler(bank DigitalBank) *Toggler {
	return &Toggler{bank: bank}
}

func (t *Toggler) Enter() error {
	t.on = false
	return t.bank.SetAll(false)
}

func (t *Toggler) Do() error {
	if err := t.bank.SetAll(!t.on); err != nil {
		return err
	}
	t.on = !t.on
	return nil
}

func (t *Toggler) Exit() error {
	return t.bank.SetAll(false)
}

// Breather drives a duty-cycle generator with a triangular ramp.
type Breather struct {
	bank    DigitalBank
	pwm     DutyCycle
	wave    *ramp.Triangle[uint32]
	engaged bool
}

func NewBreather(bank DigitalBank, pwm DutyCycle, step, max uint32) *Breather {
	return &Breather{bank: bank, pwm: pwm, wave: ramp.NewTriangle(step, max)}
}

func (b *Breather) Enter() error {
	b.wave.Reset()
	b.engaged = false
	if err := b.bank.SetAll(false); err != nil {
		return err
	}
	if err := b.engage(); err != nil {
		return err
	}
	return b.pwm.SetLevel(0)
}

// Do retries a failed engage before advancing the ramp, so the wave
// starts from 0 once the channel comes up.
func (b *Breather) Do() error {
	if !b.engaged {
		if err := b.engage(); err != nil {
			return err
		}
	}
	return b.pwm.SetLevel(b.wave.Next())
}

func (b *Breather) engage() error {
	if err := b.pwm.Engage(); err != nil {
		return fmt.Errorf("engage pwm: %w", err)
	}
	b.engaged = true
	return nil
}

func (b *Breather) Exit() error {
	b.engaged = false
	if err := b.pwm.Disengage(); err != nil {
		return fmt.Errorf("disengage pwm: %w", err)
	}
	return b.bank.SetAll(false)
}

func (b *Breather) Level() uint32 { return b.wave.Level() }

// RampConfig parameterises the breathing wave.
type RampConfig struct {
	Step uint32
	Max  uint32
}

// Hooks returns the actuator for a state's behaviour. The duty-cycle
// generator is only needed by profiles with a breathing state.
func Hooks(spec fsm.StateSpec, bank DigitalBank, pwm DutyCycle, rc RampConfig) (fsm.Hooks, error) {
	switch spec.Behavior {
	case fsm.BehaviorForward:
		return NewRotator(bank, false), nil
	case fsm.BehaviorBackward:
		return NewRotator(bank, true), nil
	case fsm.BehaviorToggle:
		return NewToggler(bank), nil
	case fsm.BehaviorBreathe:
		if pwm == nil {
			return nil, fmt.Errorf("state %s breathes but no pwm channel is configured", spec.Name)
		}
		return NewBreather(bank, pwm, rc.Step, rc.Max), nil
	default:
		return nil, fmt.Errorf("state %s: unsupported behavior %s", spec.Name, spec.Behavior)
	}
}
