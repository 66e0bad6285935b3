package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeStateChanged uint32 = iota + 1
	TypeHookFailed
	TypeRemotePress
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StateChangedEvent is published after every real transition.
type StateChangedEvent struct {
	From  string
	To    string
	Event string
	At    time.Time
}

func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// HookFailedEvent reports an Enter, Do or Exit that returned an error.
type HookFailedEvent struct {
	State string
	Hook  string
	Err   string
	At    time.Time
}

func (e HookFailedEvent) Type() uint32 { return TypeHookFailed }

// RemotePressEvent records a press injected over Redis, before debouncing.
type RemotePressEvent struct {
	Input int
	At    time.Time
}

func (e RemotePressEvent) Type() uint32 { return TypeRemotePress }
