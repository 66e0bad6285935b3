package hardware

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"led-service/internal/logger"
)

// EdgeHandler receives a press on input (0-based, in button line order)
// stamped with the kernel's monotonic edge time. It runs on gpiocdev's
// event goroutine and must not block.
type EdgeHandler func(input int, nowMs int64)

type Config struct {
	Chip    string
	Buttons []int
	LEDs    []int
	// ActiveLow buttons short to ground and get the internal pull-up.
	ActiveLow bool
	Consumer  string
}

// LinuxHardwareIO owns the button lines and one output line per LED. An LED
// line can be released so a PWM channel can drive the pin, and reclaimed
// afterwards.
type LinuxHardwareIO struct {
	logger  *logger.Logger
	cfg     Config
	chip    *gpiocdev.Chip
	buttons *gpiocdev.Lines
	leds    []*gpiocdev.Line
	state   []bool
	onEdge  EdgeHandler
	mu      sync.Mutex
}

func NewLinuxHardwareIO(cfg Config, l *logger.Logger) *LinuxHardwareIO {
	if cfg.Chip == "" {
		cfg.Chip = DefaultChip
	}
	if cfg.Consumer == "" {
		cfg.Consumer = DefaultConsumer
	}
	return &LinuxHardwareIO{
		logger: l,
		cfg:    cfg,
		leds:   make([]*gpiocdev.Line, len(cfg.LEDs)),
		state:  make([]bool, len(cfg.LEDs)),
	}
}

// Initialize requests all lines. Edges start flowing to onEdge as soon as
// it returns.
func (io *LinuxHardwareIO) Initialize(onEdge EdgeHandler) error {
	io.logger.Infof("Initializing hardware IO on %s", io.cfg.Chip)
	io.onEdge = onEdge

	chip, err := gpiocdev.NewChip(io.cfg.Chip, gpiocdev.WithConsumer(io.cfg.Consumer))
	if err != nil {
		return fmt.Errorf("failed to open GPIO chip %s: %w", io.cfg.Chip, err)
	}
	io.chip = chip

	for i, offset := range io.cfg.LEDs {
		if err := io.requestLED(i); err != nil {
			io.Cleanup()
			return err
		}
		io.logger.Debugf("Configured LED %d: line=%d", i, offset)
	}

	if len(io.cfg.Buttons) > 0 {
		opts := []gpiocdev.LineReqOption{
			gpiocdev.AsInput,
			gpiocdev.WithRisingEdge,
			gpiocdev.WithEventHandler(io.handleEvent),
		}
		if io.cfg.ActiveLow {
			opts = append(opts, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
		} else {
			opts = append(opts, gpiocdev.WithPullDown)
		}
		buttons, err := chip.RequestLines(io.cfg.Buttons, opts...)
		if err != nil {
			io.Cleanup()
			return fmt.Errorf("failed to request button lines %v: %w", io.cfg.Buttons, err)
		}
		io.buttons = buttons
		io.logger.Infof("Watching buttons on lines %v", io.cfg.Buttons)
	}

	return nil
}

func (io *LinuxHardwareIO) requestLED(i int) error {
	line, err := io.chip.RequestLine(io.cfg.LEDs[i], gpiocdev.AsOutput(boolToInt(io.state[i])))
	if err != nil {
		return fmt.Errorf("failed to request LED line %d: %w", io.cfg.LEDs[i], err)
	}
	io.leds[i] = line
	return nil
}

func (io *LinuxHardwareIO) handleEvent(evt gpiocdev.LineEvent) {
	if io.onEdge == nil {
		return
	}
	for i, offset := range io.cfg.Buttons {
		if offset == evt.Offset {
			io.onEdge(i, evt.Timestamp.Milliseconds())
			return
		}
	}
}

func (io *LinuxHardwareIO) Count() int { return len(io.cfg.LEDs) }

// Set drives one LED. Writes to a released line are dropped; the PWM
// channel owns the pin until ReclaimLED.
func (io *LinuxHardwareIO) Set(index int, on bool) error {
	io.mu.Lock()
	defer io.mu.Unlock()
	return io.setLocked(index, on)
}

func (io *LinuxHardwareIO) setLocked(index int, on bool) error {
	if index < 0 || index >= len(io.leds) {
		return fmt.Errorf("unknown LED %d", index)
	}
	io.state[index] = on
	line := io.leds[index]
	if line == nil {
		return nil
	}
	if err := line.SetValue(boolToInt(on)); err != nil {
		return fmt.Errorf("failed to set LED %d=%v: %w", index, on, err)
	}
	return nil
}

// SetAll writes every LED and reports the first failure after trying all.
func (io *LinuxHardwareIO) SetAll(on bool) error {
	io.mu.Lock()
	defer io.mu.Unlock()
	var first error
	for i := range io.leds {
		if err := io.setLocked(i, on); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ReleaseLED gives up the output line of LED index.
func (io *LinuxHardwareIO) ReleaseLED(index int) error {
	io.mu.Lock()
	defer io.mu.Unlock()
	if index < 0 || index >= len(io.leds) {
		return fmt.Errorf("unknown LED %d", index)
	}
	line := io.leds[index]
	if line == nil {
		return nil
	}
	io.leds[index] = nil
	if err := line.Close(); err != nil {
		return fmt.Errorf("failed to release LED line %d: %w", io.cfg.LEDs[index], err)
	}
	io.logger.Debugf("Released LED %d for PWM", index)
	return nil
}

// ReclaimLED requests the line of LED index again, driven off.
func (io *LinuxHardwareIO) ReclaimLED(index int) error {
	io.mu.Lock()
	defer io.mu.Unlock()
	if index < 0 || index >= len(io.leds) {
		return fmt.Errorf("unknown LED %d", index)
	}
	if io.leds[index] != nil {
		return nil
	}
	io.state[index] = false
	if err := io.requestLED(index); err != nil {
		return err
	}
	io.logger.Debugf("Reclaimed LED %d", index)
	return nil
}

func (io *LinuxHardwareIO) Cleanup() {
	io.mu.Lock()
	defer io.mu.Unlock()

	io.logger.Infof("Cleaning up hardware resources")

	if io.buttons != nil {
		io.buttons.Close()
		io.buttons = nil
	}
	for i, line := range io.leds {
		if line == nil {
			continue
		}
		line.SetValue(0)
		line.Close()
		io.leds[i] = nil
	}
	if io.chip != nil {
		io.chip.Close()
		io.chip = nil
	}
	io.logger.Infof("Hardware cleanup complete")
}
