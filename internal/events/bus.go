package events

import (
	"github.com/kelindar/event"
)

// Bus broadcasts events to subscribers. Delivery is asynchronous.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a Bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish sends ev to the subscribers of its concrete type. Unknown types are
// dropped.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case KeyStatusChangedEvent:
		event.Publish(b.dispatcher, e)
	case KeyStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case KeymapResetEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler, a func taking one of the event types, and returns a
// function removing it. Handlers of any other type are ignored.
//
//	unsub := bus.Subscribe(func(e events.KeyStateChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(KeyStatusChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(KeyStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(KeymapResetEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
