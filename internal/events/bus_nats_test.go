package events

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

func runNATS(t *testing.T) string {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		ServerName: "pos-test",
		Host:       "127.0.0.1",
		Port:       server.RANDOM_PORT,
		NoLog:      true,
		NoSigs:     true,
	})
	if err != nil {
		t.Fatal(err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		t.Fatal("nats server not ready")
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns.ClientURL()
}

// Every instance subscribes without a queue group, so each one sees every event.
func TestBusNATSFanOutAcrossInstances(t *testing.T) {
	url := runNATS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	newInstance := func() (*Bus, <-chan Event) {
		b, err := NewBus(BusConfig{NATSURL: url, RestaurantID: "r1"})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = b.Close() })
		stream, err := b.Subscribe(ctx)
		if err != nil {
			t.Fatal(err)
		}
		return b, stream
	}
	a, streamA := newInstance()
	_, streamB := newInstance()
	// SUBs from other connections register on the server asynchronously.
	time.Sleep(200 * time.Millisecond)

	sent := New(NewOrder, map[string]any{"orderNumber": "ORD-20260314-0001"})
	if err := a.Publish(ctx, sent); err != nil {
		t.Fatal(err)
	}

	for name, stream := range map[string]<-chan Event{"publisher": streamA, "peer": streamB} {
		select {
		case got := <-stream:
			if got.ID != sent.ID || got.RestaurantID != "r1" {
				t.Errorf("%s got %+v", name, got)
			}
		case <-ctx.Done():
			t.Fatalf("%s instance did not receive the event", name)
		}
	}
}

func TestBusNATSIsolatesRestaurants(t *testing.T) {
	url := runNATS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	other, err := NewBus(BusConfig{NATSURL: url, RestaurantID: "r2"})
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	stream, err := other.Subscribe(ctx)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)

	pub, err := NewBus(BusConfig{NATSURL: url, RestaurantID: "r1"})
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()
	if err := pub.Publish(ctx, New(LowStockAlert, nil)); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-stream:
		t.Fatalf("restaurant r2 received %s from r1", ev.Name)
	case <-time.After(300 * time.Millisecond):
	}
}
