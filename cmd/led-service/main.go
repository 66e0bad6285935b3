package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"led-service/internal/actuator"
	"led-service/internal/config"
	"led-service/internal/core"
	"led-service/internal/fsm"
	"led-service/internal/hardware"
	"led-service/internal/logger"
	"led-service/internal/messaging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "led-service",
	Short:         "Button driven LED state machine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the LED controller",
	RunE:  runService,
}

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the transition table of the configured profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		profile, err := cfg.Profile()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "profile %s (available: %v)\n\n", profile.Name, fsm.ProfileNames())
		if err := profile.Table.Write(out, profile.Bind(nil)); err != nil {
			return err
		}
		if cfg.PWM.Enabled {
			pwm := cfg.Pwm()
			fmt.Fprintf(out, "\npwm: %.0f Hz, period %d ns, ramp step %d max %d\n",
				pwm.FrequencyHz(), pwm.PeriodNs(), cfg.PWM.Step, cfg.PWM.Max)
		}
		return nil
	},
}

var pressCmd = &cobra.Command{
	Use:   "press <button>",
	Short: "Inject a button press into a running service over Redis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		input, err := messaging.ParsePress(args[0])
		if err != nil {
			return err
		}
		l := logger.NewLogger(nil, logger.LogLevelNone)
		client := messaging.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Prefix, l, messaging.Callbacks{})
		defer client.Close()
		if err := client.Connect(); err != nil {
			return err
		}
		if err := client.SendPress(input); err != nil {
			return fmt.Errorf("failed to send press: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "queued press %d\n", input+1)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the TOML config file")
	pf.String("log", "info", "Service log level (none, error, warn, info, debug or 0-4)")
	pf.String("profile", fsm.DefaultProfile, "State machine profile")
	pf.String("redis-addr", "", "Redis address; enables state publication")
	pf.String("gpio-chip", hardware.DefaultChip, "GPIO character device")
	pf.Int("debounce-ms", 50, "Button debounce window in milliseconds")

	runCmd.Flags().String("metrics-listen", "", "Serve Prometheus metrics on this address")

	rootCmd.AddCommand(runCmd, tableCmd, pressCmd)
}

func newLogger(level logger.LogLevel) *logger.Logger {
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}
	return logger.NewLogger(stdLogger, level)
}

func runService(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	l := newLogger(cfg.LogLevel())
	l.Infof("Starting LED service...")

	io := hardware.NewLinuxHardwareIO(cfg.Hardware(), l.WithTag("GPIO"))

	var pwm actuator.DutyCycle
	if cfg.PWM.Enabled {
		pwm = hardware.NewSysfsPwmLed(cfg.Pwm(), io, cfg.PWM.LED, l.WithTag("PWM"))
	}

	var opts []core.Option
	if cfg.Redis.Enabled {
		redis := messaging.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Prefix, l.WithTag("Redis"), messaging.Callbacks{})
		opts = append(opts, core.WithMessaging(redis))
	}

	system, err := core.NewLedSystem(cfg, io, pwm, l, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := system.Start(ctx); err != nil {
		system.Shutdown()
		return fmt.Errorf("failed to start system: %w", err)
	}
	l.Infof("System started successfully")

	if cfg.Metrics.Enabled {
		go func() {
			l.Infof("Serving metrics on %s", cfg.Metrics.Listen)
			if err := system.Metrics().Serve(ctx, cfg.Metrics.Listen); err != nil {
				l.Errorf("Metrics server failed: %v", err)
			}
		}()
	}

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		l.Debugf("sd_notify failed: %v", err)
	}

	runErr := system.Run(ctx)
	l.Infof("Shutting down...")
	daemon.SdNotify(false, daemon.SdNotifyStopping)
	system.Shutdown()
	l.Infof("Shutdown complete")
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
