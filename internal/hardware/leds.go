package hardware

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"

	"led-service/internal/logger"
	"led-service/internal/ramp"
)

// PwmConfig describes a generator the way the board datasheet does:
// freq = base_clock / (divider * wrap). Levels above wrap saturate.
type PwmConfig struct {
	ChipPath    string
	Channel     int
	BaseClockHz uint64
	Divider     uint32
	Wrap        uint32
}

func (c PwmConfig) FrequencyHz() float64 {
	if c.Divider == 0 || c.Wrap == 0 {
		return 0
	}
	return float64(c.BaseClockHz) / (float64(c.Divider) * float64(c.Wrap))
}

// PeriodNs is the generator period rounded to the nearest nanosecond.
func (c PwmConfig) PeriodNs() uint64 {
	if c.BaseClockHz == 0 {
		return 0
	}
	return uint64(math.Round(float64(c.Divider) * float64(c.Wrap) * 1e9 / float64(c.BaseClockHz)))
}

// DutyNs maps a compare level to a high time within PeriodNs.
func (c PwmConfig) DutyNs(level uint32) uint64 {
	top := uint64(c.Wrap) + 1
	l := ramp.Clamp(uint64(level), 0, top)
	return c.PeriodNs() * l / top
}

// LineReleaser hands an LED pin between digital control and the PWM channel.
type LineReleaser interface {
	ReleaseLED(index int) error
	ReclaimLED(index int) error
}

// SysfsPwmLed drives one LED through a Linux sysfs PWM channel. Engage
// takes the pin from the GPIO bank, Disengage gives it back.
type SysfsPwmLed struct {
	logger *logger.Logger
	cfg    PwmConfig
	bank   LineReleaser
	led    int

	mu       sync.Mutex
	engaged  bool
	lastDuty uint64
}

func NewSysfsPwmLed(cfg PwmConfig, bank LineReleaser, led int, l *logger.Logger) *SysfsPwmLed {
	if cfg.ChipPath == "" {
		cfg.ChipPath = DefaultPwmChip
	}
	return &SysfsPwmLed{logger: l, cfg: cfg, bank: bank, led: led}
}

func (p *SysfsPwmLed) channelDir() string {
	return filepath.Join(p.cfg.ChipPath, "pwm"+strconv.Itoa(p.cfg.Channel))
}

func (p *SysfsPwmLed) Engage() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engaged {
		return nil
	}

	if err := p.bank.ReleaseLED(p.led); err != nil {
		return err
	}
	if err := p.enable(); err != nil {
		if rerr := p.bank.ReclaimLED(p.led); rerr != nil {
			p.logger.Warnf("Failed to reclaim LED %d: %v", p.led, rerr)
		}
		return err
	}
	p.engaged = true
	p.lastDuty = 0
	p.logger.Infof("PWM channel %d enabled at %.0f Hz", p.cfg.Channel, p.cfg.FrequencyHz())
	return nil
}

func (p *SysfsPwmLed) enable() error {
	if err := unix.Access(p.channelDir(), unix.F_OK); err != nil {
		if err := writeAttr(filepath.Join(p.cfg.ChipPath, "export"), strconv.Itoa(p.cfg.Channel)); err != nil {
			return fmt.Errorf("failed to export pwm channel %d: %w", p.cfg.Channel, err)
		}
	}
	// duty_cycle must never exceed period, so zero it first
	if err := p.write("duty_cycle", 0); err != nil {
		return err
	}
	if err := p.write("period", p.cfg.PeriodNs()); err != nil {
		return err
	}
	return p.write("enable", 1)
}

// SetLevel updates the compare level. Unchanged duty values are not
// rewritten.
func (p *SysfsPwmLed) SetLevel(level uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.engaged {
		return fmt.Errorf("pwm channel %d not engaged", p.cfg.Channel)
	}
	duty := p.cfg.DutyNs(level)
	if duty == p.lastDuty {
		return nil
	}
	if err := p.write("duty_cycle", duty); err != nil {
		return err
	}
	p.lastDuty = duty
	return nil
}

func (p *SysfsPwmLed) Disengage() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.engaged {
		return nil
	}
	if err := p.write("enable", 0); err != nil {
		return err
	}
	p.engaged = false
	p.logger.Infof("PWM channel %d disabled", p.cfg.Channel)
	return p.bank.ReclaimLED(p.led)
}

func (p *SysfsPwmLed) write(attr string, v uint64) error {
	if err := writeAttr(filepath.Join(p.channelDir(), attr), strconv.FormatUint(v, 10)); err != nil {
		return fmt.Errorf("failed to set pwm %s=%d: %w", attr, v, err)
	}
	return nil
}

func writeAttr(path, value string) error {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_TRUNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	_, err = unix.Write(fd, []byte(value))
	return err
}
