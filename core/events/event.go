package events

import "cafichain/core/types"

// Event represents a structured state change emitted by a native module.
type Event interface {
	EventType() string
}

// Renderable events know how to flatten themselves into the wire format.
type Renderable interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, the event log).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events emitted during a single call so they can be published
// only once the call's state changes are committed.
type Buffer struct {
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(e Event) {
	if b == nil || e == nil {
		return
	}
	b.events = append(b.events, e)
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []Event {
	if b == nil {
		return nil
	}
	return append([]Event(nil), b.events...)
}

// Rendered flattens the buffered events, skipping those without a wire form.
func (b *Buffer) Rendered() []*types.Event {
	if b == nil {
		return nil
	}
	out := make([]*types.Event, 0, len(b.events))
	for _, e := range b.events {
		r, ok := e.(Renderable)
		if !ok {
			continue
		}
		if rendered := r.Event(); rendered != nil {
			out = append(out, rendered)
		}
	}
	return out
}

// Reset drops all buffered events.
func (b *Buffer) Reset() {
	if b == nil {
		return
	}
	b.events = nil
}
