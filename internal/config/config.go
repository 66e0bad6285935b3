// Package config loads the service configuration: built-in defaults, then
// the TOML file, then any command-line flags the user set explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"led-service/internal/debounce"
	"led-service/internal/fsm"
	"led-service/internal/hardware"
	"led-service/internal/logger"
)

var ErrInvalid = errors.New("invalid configuration")

const DefaultPath = "/etc/led-service/config.toml"

type Config struct {
	GPIO     GPIOConfig     `toml:"gpio"`
	Debounce DebounceConfig `toml:"debounce"`
	Queue    QueueConfig    `toml:"queue"`
	FSM      FSMConfig      `toml:"fsm"`
	PWM      PWMConfig      `toml:"pwm"`
	Redis    RedisConfig    `toml:"redis"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Log      LogConfig      `toml:"log"`
}

type GPIOConfig struct {
	Chip      string `toml:"chip"`
	Buttons   []int  `toml:"buttons"`
	LEDs      []int  `toml:"leds"`
	ActiveLow bool   `toml:"active_low"`
}

type DebounceConfig struct {
	WindowMs int `toml:"window_ms"`
}

type QueueConfig struct {
	Capacity int `toml:"capacity"`
}

type FSMConfig struct {
	Profile string `toml:"profile"`
	// IntervalsMs overrides per-state tick intervals by state name.
	IntervalsMs map[string]int `toml:"intervals_ms"`
}

type PWMConfig struct {
	Enabled     bool   `toml:"enabled"`
	Chip        string `toml:"chip"`
	Channel     int    `toml:"channel"`
	LED         int    `toml:"led"`
	BaseClockHz uint64 `toml:"base_clock_hz"`
	Divider     uint32 `toml:"divider"`
	Wrap        uint32 `toml:"wrap"`
	Step        uint32 `toml:"step"`
	Max         uint32 `toml:"max"`
}

type RedisConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
	Prefix  string `toml:"prefix"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func Default() *Config {
	return &Config{
		GPIO: GPIOConfig{
			Chip:      hardware.DefaultChip,
			Buttons:   append([]int(nil), hardware.DefaultButtonLines...),
			LEDs:      append([]int(nil), hardware.DefaultLedLines...),
			ActiveLow: true,
		},
		Debounce: DebounceConfig{WindowMs: int(debounce.DefaultWindow / time.Millisecond)},
		Queue:    QueueConfig{Capacity: 32},
		FSM:      FSMConfig{Profile: fsm.DefaultProfile},
		PWM: PWMConfig{
			Enabled:     true,
			Chip:        hardware.DefaultPwmChip,
			Channel:     0,
			LED:         0,
			BaseClockHz: hardware.DefaultBaseClockHz,
			Divider:     hardware.DefaultDivider,
			Wrap:        hardware.DefaultWrap,
			Step:        500,
			Max:         65535,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			Prefix:  "led",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9108",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration. A missing file is only an error when the
// path was given explicitly. Flags override the file only when the user
// set them (flags may be nil).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := applyFlags(cfg, flags); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cfg *Config, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "log":
			cfg.Log.Level = f.Value.String()
		case "profile":
			cfg.FSM.Profile = f.Value.String()
		case "redis-addr":
			cfg.Redis.Addr = f.Value.String()
			cfg.Redis.Enabled = true
		case "metrics-listen":
			cfg.Metrics.Listen = f.Value.String()
			cfg.Metrics.Enabled = true
		case "gpio-chip":
			cfg.GPIO.Chip = f.Value.String()
		case "debounce-ms":
			cfg.Debounce.WindowMs, err = flags.GetInt(f.Name)
		}
	})
	return err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks values and cross-references against the chosen profile.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return invalid("log level: %v", err)
	}
	if c.Debounce.WindowMs <= 0 {
		return invalid("debounce window must be positive, got %d ms", c.Debounce.WindowMs)
	}
	if c.Queue.Capacity <= 0 {
		return invalid("queue capacity must be positive, got %d", c.Queue.Capacity)
	}
	if len(c.GPIO.Buttons) != fsm.NumInputs {
		return invalid("need %d button lines, got %d", fsm.NumInputs, len(c.GPIO.Buttons))
	}
	if len(c.GPIO.LEDs) == 0 {
		return invalid("no LED lines configured")
	}

	profile, err := c.Profile()
	if err != nil {
		return invalid("%v", err)
	}

	breathes := false
	for _, s := range profile.States {
		if s.Behavior == fsm.BehaviorBreathe {
			breathes = true
		}
	}
	if breathes && !c.PWM.Enabled {
		return invalid("profile %s needs pwm but [pwm] is disabled", profile.Name)
	}
	if c.PWM.Enabled {
		if c.PWM.LED < 0 || c.PWM.LED >= len(c.GPIO.LEDs) {
			return invalid("pwm led %d out of range", c.PWM.LED)
		}
		if c.PWM.BaseClockHz == 0 || c.PWM.Divider == 0 || c.PWM.Wrap == 0 {
			return invalid("pwm base_clock_hz, divider and wrap must be positive")
		}
		if c.PWM.Step == 0 || c.PWM.Max == 0 {
			return invalid("pwm ramp step and max must be positive")
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return invalid("redis enabled without addr")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return invalid("metrics enabled without listen address")
	}
	return nil
}

// Profile resolves the configured profile with interval overrides applied.
func (c *Config) Profile() (fsm.Profile, error) {
	p, err := fsm.LookupProfile(c.FSM.Profile)
	if err != nil {
		return fsm.Profile{}, err
	}
	if len(c.FSM.IntervalsMs) == 0 {
		return p, nil
	}
	overrides := make(map[string]time.Duration, len(c.FSM.IntervalsMs))
	for name, ms := range c.FSM.IntervalsMs {
		if ms <= 0 {
			return fsm.Profile{}, fmt.Errorf("interval for %s must be positive, got %d ms", name, ms)
		}
		overrides[name] = time.Duration(ms) * time.Millisecond
	}
	return p.WithIntervals(overrides)
}

func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Debounce.WindowMs) * time.Millisecond
}

func (c *Config) LogLevel() logger.LogLevel {
	l, _ := logger.ParseLevel(c.Log.Level)
	return l
}

func (c *Config) Hardware() hardware.Config {
	return hardware.Config{
		Chip:      c.GPIO.Chip,
		Buttons:   c.GPIO.Buttons,
		LEDs:      c.GPIO.LEDs,
		ActiveLow: c.GPIO.ActiveLow,
	}
}

func (c *Config) Pwm() hardware.PwmConfig {
	return hardware.PwmConfig{
		ChipPath:    c.PWM.Chip,
		Channel:     c.PWM.Channel,
		BaseClockHz: c.PWM.BaseClockHz,
		Divider:     c.PWM.Divider,
		Wrap:        c.PWM.Wrap,
	}
}
