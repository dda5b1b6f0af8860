// Package events provides the domain event bus. Events are emitted on the
// driver goroutine and dispatched synchronously; boundary collaborators that
// receive events off-thread (the client bridge) queue them and hand them to
// the driver, which emits here.
package events

import (
	"context"

	"github.com/vk/phasebot/internal/ctxlog"
)

// Event names a domain event.
type Event string

// Domain events raised by the environment.
const (
	PartyWipe   Event = "party_wipe"
	PlayerDeath Event = "player_death"
	PlayerStuck Event = "player_stuck"
)

// Handler reacts to an emitted event.
type Handler func(ctx context.Context)

// Bus is a synchronous, single-threaded event dispatcher.
type Bus struct {
	handlers map[Event][]Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Event][]Handler)}
}

// On subscribes a handler to an event. Handlers run in subscription order.
func (b *Bus) On(e Event, h Handler) {
	b.handlers[e] = append(b.handlers[e], h)
}

// Emit dispatches an event to all subscribed handlers synchronously.
func (b *Bus) Emit(ctx context.Context, e Event) {
	hs := b.handlers[e]
	ctxlog.FromContext(ctx).Debug("Dispatching domain event.", "event", string(e), "handlers", len(hs))
	for _, h := range hs {
		h(ctx)
	}
}
