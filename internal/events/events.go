// Package events defines the realtime notification catalog and the bus that carries it.
//
// Delivery is at-most-once: events are published after the database commit and a failed
// publish is logged, never retried. Clients resynchronise over REST after reconnecting.
package events

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"restoran-pos/internal/logging"
)

type Name string

const (
	NewOrder            Name = "new-order"
	OrderStatusUpdate   Name = "order-status-update"
	KOTPrinted          Name = "kot-printed"
	KOTItemStatusUpdate Name = "kot-item-status-update"
	OrderReady          Name = "order-ready"
	KOTCompleted        Name = "kot-completed"
	LowStockAlert       Name = "low-stock-alert"
	PaymentReceived     Name = "payment-received"
	TableStatusUpdate   Name = "table-status-update"
	TableAssignment     Name = "table-assignment"
	SettingsUpdated     Name = "settings-updated"
	SettingsReset       Name = "settings-reset"
	BackupCreated       Name = "backup-created"
)

// Room is a role-scoped realtime channel inside one restaurant.
type Room string

const (
	RoomKitchen Room = "kitchen"
	RoomWaiter  Room = "waiter"
	RoomManager Room = "manager"
	RoomAdmin   Room = "admin"
	RoomCashier Room = "cashier"
)

type Audience struct {
	Rooms []Room
	// Broadcast also delivers to every connected client of the restaurant.
	Broadcast bool
}

var audiences = map[Name]Audience{
	NewOrder:            {Rooms: []Room{RoomKitchen, RoomManager, RoomAdmin}},
	OrderStatusUpdate:   {Rooms: []Room{RoomWaiter, RoomManager, RoomAdmin}},
	KOTPrinted:          {Rooms: []Room{RoomKitchen}, Broadcast: true},
	KOTItemStatusUpdate: {Rooms: []Room{RoomKitchen, RoomWaiter, RoomManager}},
	OrderReady:          {Rooms: []Room{RoomKitchen, RoomWaiter, RoomManager}},
	KOTCompleted:        {Rooms: []Room{RoomKitchen, RoomWaiter, RoomManager}},
	LowStockAlert:       {Rooms: []Room{RoomManager, RoomAdmin}},
	PaymentReceived:     {Rooms: []Room{RoomManager, RoomAdmin}},
	TableStatusUpdate:   {Rooms: []Room{RoomWaiter, RoomManager, RoomAdmin}},
	TableAssignment:     {Rooms: []Room{RoomWaiter, RoomManager, RoomAdmin}},
	SettingsUpdated:     {Rooms: []Room{RoomAdmin}},
	SettingsReset:       {Rooms: []Room{RoomAdmin}},
	BackupCreated:       {Rooms: []Room{RoomAdmin}},
}

// AudienceFor returns the rooms an event is addressed to. Unknown names go to admins.
func AudienceFor(name Name) Audience {
	if a, ok := audiences[name]; ok {
		return a
	}
	return Audience{Rooms: []Room{RoomAdmin}}
}

// Event is the envelope carried on the bus and written to websocket clients.
type Event struct {
	ID           string          `json:"id"`
	Name         Name            `json:"event"`
	RestaurantID string          `json:"restaurantId"`
	Rooms        []Room          `json:"rooms"`
	Broadcast    bool            `json:"broadcast,omitempty"`
	Data         json.RawMessage `json:"data"`
	OccurredAt   time.Time       `json:"occurredAt"`
}

// New builds an event addressed per AudienceFor. The restaurant id is stamped by the bus.
func New(name Name, data any) Event {
	raw, err := json.Marshal(data)
	if err != nil {
		logging.Error().Err(err).Str("event", string(name)).Msg("event payload not encodable")
		raw = json.RawMessage("null")
	}
	aud := AudienceFor(name)
	return Event{
		ID:         uuid.NewString(),
		Name:       name,
		Rooms:      aud.Rooms,
		Broadcast:  aud.Broadcast,
		Data:       raw,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher hands events to the fan-out layer.
type Publisher interface {
	Publish(ctx context.Context, evs ...Event) error
}

// Emit publishes best-effort: failures are logged and swallowed.
func Emit(ctx context.Context, p Publisher, evs ...Event) {
	if p == nil || len(evs) == 0 {
		return
	}
	if err := p.Publish(ctx, evs...); err != nil {
		logging.Warn().Err(err).Str("event", string(evs[0].Name)).Int("count", len(evs)).Msg("event publish failed")
	}
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, ...Event) error { return nil }
