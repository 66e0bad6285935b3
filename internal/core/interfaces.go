package core

import (
	"led-service/internal/actuator"
	"led-service/internal/hardware"
	"led-service/internal/messaging"
)

// MessagingClient defines the Redis operations needed by LedSystem
type MessagingClient interface {
	SetCallbacks(callbacks messaging.Callbacks)
	Connect() error
	StartListening() error
	Close() error

	PublishState(state, event string) error
	PublishProfile(profile string, states []string) error
	ReportHookFailure(state, hook, reason string) error
}

// HardwareIO defines the GPIO operations needed by LedSystem. The LED bank
// doubles as the actuators' digital outputs.
type HardwareIO interface {
	Initialize(onEdge hardware.EdgeHandler) error
	Cleanup()

	actuator.DigitalBank
}
