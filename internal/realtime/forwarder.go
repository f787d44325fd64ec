package realtime

import (
	"context"
	"errors"

	"restoran-pos/internal/events"
	"restoran-pos/internal/logging"
)

// Subscriber is the read side of the event bus.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan events.Event, error)
}

// Forwarder moves bus events into the hub.
type Forwarder struct {
	bus Subscriber
	hub *Hub
}

func NewForwarder(bus Subscriber, hub *Hub) *Forwarder {
	return &Forwarder{bus: bus, hub: hub}
}

var errSubscriptionClosed = errors.New("event subscription closed")

// Serve returns an error when the subscription ends early so the supervisor resubscribes.
func (f *Forwarder) Serve(ctx context.Context) error {
	ch, err := f.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	logging.Info().Msg("realtime forwarder subscribed")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errSubscriptionClosed
			}
			f.hub.Deliver(ev)
		}
	}
}

func (f *Forwarder) String() string { return "realtime-forwarder" }
