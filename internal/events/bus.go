package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"restoran-pos/internal/logging"
	"restoran-pos/internal/metrics"
)

type BusConfig struct {
	// NATSURL selects core NATS; empty keeps the bus in-process.
	NATSURL       string
	SubjectPrefix string
	RestaurantID  string
	// FailureThreshold consecutive publish failures open the breaker.
	FailureThreshold uint32
	BreakerTimeout   time.Duration
}

// Bus carries events from the HTTP handlers to the realtime fan-out. With NATS configured,
// every instance subscribes to the same subject without a queue group, so each one sees
// every event and delivers it to its own websocket clients.
type Bus struct {
	pub          message.Publisher
	sub          message.Subscriber
	breaker      *gobreaker.CircuitBreaker[any]
	topic        string
	restaurantID string

	mu     sync.RWMutex
	closed bool
}

func NewBus(cfg BusConfig) (*Bus, error) {
	logger := logging.Watermill()

	if cfg.NATSURL == "" {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
		return newBus(ch, ch, cfg), nil
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("restoran-pos"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
	// Realtime nudges are fire-and-forget, so JetStream persistence stays off.
	jsConfig := wmNats.JetStreamConfig{Disabled: true}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.NATSURL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   jsConfig,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.NATSURL,
		SubscribersCount: 1,
		AckWaitTimeout:   5 * time.Second,
		CloseTimeout:     5 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        jsConfig,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	return newBus(pub, sub, cfg), nil
}

func newBus(pub message.Publisher, sub message.Subscriber, cfg BusConfig) *Bus {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "pos"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 15 * time.Second
	}
	threshold := cfg.FailureThreshold

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "event-bus",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &Bus{
		pub:          pub,
		sub:          sub,
		breaker:      breaker,
		topic:        cfg.SubjectPrefix + ".events." + cfg.RestaurantID,
		restaurantID: cfg.RestaurantID,
	}
}

var ErrBusClosed = errors.New("event bus closed")

// Publish stamps the restaurant id and sends each event. It reports every failure but
// keeps going, so one bad event does not hide the rest.
func (b *Bus) Publish(_ context.Context, evs ...Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	var errs error
	for _, ev := range evs {
		if ev.RestaurantID == "" {
			ev.RestaurantID = b.restaurantID
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("encode %s: %w", ev.Name, err))
			continue
		}
		msg := message.NewMessage(ev.ID, payload)
		msg.Metadata.Set("event", string(ev.Name))

		_, err = b.breaker.Execute(func() (any, error) {
			return nil, b.pub.Publish(b.topic, msg)
		})
		metrics.RecordPublish(string(ev.Name), err)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("publish %s: %w", ev.Name, err))
		}
	}
	return errs
}

// Subscribe streams decoded events until ctx is cancelled. Undecodable messages are
// acknowledged and skipped.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	msgs, err := b.sub.Subscribe(ctx, b.topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", b.topic, err)
	}

	out := make(chan Event, 256)
	go func() {
		defer close(out)
		for msg := range msgs {
			var ev Event
			err := json.Unmarshal(msg.Payload, &ev)
			msg.Ack()
			if err != nil {
				logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable event")
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	err := b.pub.Close()
	if any(b.sub) != any(b.pub) {
		err = errors.Join(err, b.sub.Close())
	}
	return err
}
