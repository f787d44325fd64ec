package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"restoran-pos/internal/events"
	"restoran-pos/internal/metrics"
	"restoran-pos/internal/models"
)

func joinedClient(t *testing.T, h *Hub, role models.UserRole) *Client {
	t.Helper()
	c := NewClient(h, nil, 7, role, "main")
	h.add(c)
	restaurantID, key, err := c.resolveJoin(joinRequest{Role: role})
	if err != nil {
		t.Fatalf("join %s: %v", role, err)
	}
	if !h.join(c, restaurantID, key) {
		t.Fatalf("join %s refused", role)
	}
	return c
}

func received(c *Client) []string {
	var out []string
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, msg.Type)
		default:
			return out
		}
	}
}

func event(name events.Name) events.Event {
	ev := events.New(name, map[string]int{"orderId": 1})
	ev.RestaurantID = "main"
	return ev
}

func TestDeliverRoutesByRoom(t *testing.T) {
	h := NewHub()
	kitchen := joinedClient(t, h, models.RoleKitchenStaff)
	waiter := joinedClient(t, h, models.RoleWaiter)
	cashier := joinedClient(t, h, models.RoleCashier)
	lurker := NewClient(h, nil, 9, models.RoleWaiter, "main")
	h.add(lurker)

	h.deliverEvent(event(events.NewOrder))
	h.deliverEvent(event(events.OrderReady))
	h.deliverEvent(event(events.KOTPrinted))

	tests := []struct {
		name   string
		client *Client
		want   []string
	}{
		{"kitchen", kitchen, []string{"new-order", "order-ready", "kot-printed"}},
		{"waiter", waiter, []string{"order-ready", "kot-printed"}},
		{"cashier gets broadcasts only", cashier, []string{"kot-printed"}},
		{"not joined", lurker, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := received(tt.client)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("message %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDeliverIgnoresOtherRestaurants(t *testing.T) {
	h := NewHub()
	kitchen := joinedClient(t, h, models.RoleKitchenStaff)

	ev := event(events.KOTPrinted)
	ev.RestaurantID = "branch-2"
	h.deliverEvent(ev)

	if got := received(kitchen); len(got) != 0 {
		t.Errorf("received %v from another restaurant", got)
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	h := NewHub()
	slow := joinedClient(t, h, models.RoleKitchenStaff)
	fast := joinedClient(t, h, models.RoleKitchenStaff)
	for i := 0; i < clientSendQueueSize; i++ {
		slow.send <- Message{Type: "filler"}
	}
	before := testutil.ToFloat64(metrics.RealtimeDropped)

	h.deliverEvent(event(events.NewOrder))

	if h.ClientCount() != 1 || h.RoomSize("main:kitchen") != 1 {
		t.Fatalf("clients = %d, room = %d", h.ClientCount(), h.RoomSize("main:kitchen"))
	}
	if got := testutil.ToFloat64(metrics.RealtimeDropped) - before; got != 1 {
		t.Errorf("dropped counter moved by %v", got)
	}
	if got := received(fast); len(got) != 1 {
		t.Errorf("fast client got %v", got)
	}
	if n := len(received(slow)); n != clientSendQueueSize {
		t.Errorf("slow client drained %d messages", n)
	}
	if _, ok := <-slow.send; ok {
		t.Error("slow client's channel still open")
	}

	// A reply to a dropped client must not panic on the closed channel.
	h.reply(slow, Message{Type: MessageTypePong})
	h.remove(slow)
}

func TestResolveJoin(t *testing.T) {
	h := NewHub()
	tests := []struct {
		name    string
		role    models.UserRole
		req     joinRequest
		wantKey string
		wantErr error
	}{
		{"kitchen staff", models.RoleKitchenStaff, joinRequest{UserID: float64(7), Role: models.RoleKitchenStaff, RestaurantID: "main"}, "main:kitchen", nil},
		{"default restaurant", models.RoleWaiter, joinRequest{Role: models.RoleWaiter}, "main:waiter", nil},
		{"string user id", models.RoleCashier, joinRequest{UserID: "7", Role: models.RoleCashier}, "main:cashier", nil},
		{"admin joins kitchen", models.RoleAdmin, joinRequest{Role: models.RoleKitchenStaff}, "main:kitchen", nil},
		{"waiter into kitchen", models.RoleWaiter, joinRequest{Role: models.RoleKitchenStaff}, "", ErrRoleMismatch},
		{"someone else", models.RoleWaiter, joinRequest{UserID: float64(8), Role: models.RoleWaiter}, "", ErrUserMismatch},
		{"customer", models.RoleCustomer, joinRequest{Role: models.RoleCustomer}, "", ErrNoRoomForRole},
		{"other restaurant", models.RoleWaiter, joinRequest{Role: models.RoleWaiter, RestaurantID: "branch-2"}, "", ErrUnknownRestaurant},
		{"no role", models.RoleWaiter, joinRequest{}, "", ErrMalformedHandshake},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(h, nil, 7, tt.role, "main")
			_, key, err := c.resolveJoin(tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if key != tt.wantKey {
				t.Errorf("key = %q, want %q", key, tt.wantKey)
			}
		})
	}
}

func TestRejoinMovesRoom(t *testing.T) {
	h := NewHub()
	c := joinedClient(t, h, models.RoleAdmin)
	if !h.join(c, "main", RoomKey("main", events.RoomKitchen)) {
		t.Fatal("rejoin refused")
	}
	if h.RoomSize("main:admin") != 0 || h.RoomSize("main:kitchen") != 1 {
		t.Errorf("admin=%d kitchen=%d", h.RoomSize("main:admin"), h.RoomSize("main:kitchen"))
	}
}

type chanSubscriber struct{ ch chan events.Event }

func (s chanSubscriber) Subscribe(context.Context) (<-chan events.Event, error) { return s.ch, nil }

func TestForwarderFeedsHub(t *testing.T) {
	h := NewHub()
	kitchen := joinedClient(t, h, models.RoleKitchenStaff)
	sub := chanSubscriber{ch: make(chan events.Event, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.Serve(ctx) }()

	fwdErr := make(chan error, 1)
	go func() { fwdErr <- NewForwarder(sub, h).Serve(ctx) }()

	sub.ch <- event(events.NewOrder)
	select {
	case msg := <-kitchen.send:
		if msg.Type != string(events.NewOrder) {
			t.Errorf("type = %s", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not forwarded")
	}

	close(sub.ch)
	select {
	case err := <-fwdErr:
		if !errors.Is(err, errSubscriptionClosed) {
			t.Errorf("err = %v, want errSubscriptionClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder did not return")
	}
}
