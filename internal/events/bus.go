// Package events is the in-process notification bus. Publishing never
// blocks the caller; subscribers run on the dispatcher's goroutines.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish sends ev to all subscribers of its type. Unknown types are ignored.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case StateChangedEvent:
		event.Publish(b.dispatcher, e)
	case HookFailedEvent:
		event.Publish(b.dispatcher, e)
	case RemotePressEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler; the handler's parameter type selects the
// events it receives. Returns an unsubscribe function.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(StateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(HookFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RemotePressEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

func (b *Bus) Close() error {
	return b.dispatcher.Close()
}
