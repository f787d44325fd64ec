// Package realtime pushes bus events to websocket clients grouped into role rooms.
package realtime

import (
	"context"
	"sort"
	"sync"

	"restoran-pos/internal/events"
	"restoran-pos/internal/logging"
	"restoran-pos/internal/metrics"
)

const (
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
	MessageTypeJoin     = "join-role-room"
	MessageTypeJoined   = "joined"
	MessageTypeError    = "error"
	deliverBufferSize   = 256
	clientSendQueueSize = 256
)

// Message is the frame written to clients. Events use their name as Type.
type Message struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Data any    `json:"data"`
}

// RoomKey scopes a role room to one restaurant.
func RoomKey(restaurantID string, room events.Room) string {
	return restaurantID + ":" + string(room)
}

// Hub owns the client set. Clients are added on connect and join at most one room once
// their handshake is accepted; only joined clients receive events. The maps are guarded by
// mu and a client's send channel is only written or closed while holding it.
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
	deliver chan events.Event

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
		deliver: make(chan events.Event, deliverBufferSize),
	}
}

// Serve fans queued events out until ctx is cancelled, then disconnects every client.
func (h *Hub) Serve(ctx context.Context) error {
	logging.Info().Msg("realtime hub started")
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("realtime hub stopping")
			return ctx.Err()
		case ev := <-h.deliver:
			h.deliverEvent(ev)
		}
	}
}

func (h *Hub) String() string { return "realtime-hub" }

// Deliver queues an event for fan-out. A full queue drops the event.
func (h *Hub) Deliver(ev events.Event) {
	select {
	case h.deliver <- ev:
	default:
		logging.Warn().Str("event", string(ev.Name)).Msg("realtime delivery queue full, dropping event")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize counts the clients joined to key.
func (h *Hub) RoomSize(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[key])
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	metrics.RealtimeClients.Set(float64(n))
	logging.Debug().Uint64("client_id", c.id).Uint("user_id", c.userID).Int("clients", n).Msg("websocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	n, removed := h.dropLocked(c)
	h.mu.Unlock()

	if removed {
		metrics.RealtimeClients.Set(float64(n))
		logging.Debug().Uint64("client_id", c.id).Int("clients", n).Msg("websocket client disconnected")
	}
}

// dropLocked removes c from every index and closes its send channel once.
func (h *Hub) dropLocked(c *Client) (int, bool) {
	if !h.clients[c] {
		return len(h.clients), false
	}
	delete(h.clients, c)
	if c.room != "" {
		if members := h.rooms[c.room]; members != nil {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, c.room)
			}
		}
	}
	close(c.send)
	return len(h.clients), true
}

// reply sends a direct answer to c unless it has already been dropped or its buffer is full.
func (h *Hub) reply(c *Client, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// join moves c into the room key. A client sits in one room at a time.
func (h *Hub) join(c *Client, restaurantID, key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return false
	}
	if c.room != "" && c.room != key {
		delete(h.rooms[c.room], c)
		if len(h.rooms[c.room]) == 0 {
			delete(h.rooms, c.room)
		}
	}
	members := h.rooms[key]
	if members == nil {
		members = make(map[*Client]bool)
		h.rooms[key] = members
	}
	members[c] = true
	c.room = key
	c.restaurantID = restaurantID
	return true
}

// deliverEvent writes ev to its target rooms, or to every joined client of the restaurant
// for broadcasts. Slow clients are disconnected rather than blocking the hub.
func (h *Hub) deliverEvent(ev events.Event) {
	msg := Message{Type: string(ev.Name), ID: ev.ID, Data: ev.Data}

	h.mu.Lock()
	targets := h.targetsLocked(ev)
	var slow []*Client
	for _, c := range targets {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	n := len(h.clients)
	for _, c := range slow {
		n, _ = h.dropLocked(c)
	}
	h.mu.Unlock()

	if len(slow) > 0 {
		metrics.RealtimeDropped.Add(float64(len(slow)))
		metrics.RealtimeClients.Set(float64(n))
		logging.Warn().Str("event", string(ev.Name)).Int("dropped", len(slow)).Msg("dropped slow websocket clients")
	}
}

// targetsLocked returns the recipients of ev ordered by client id.
func (h *Hub) targetsLocked(ev events.Event) []*Client {
	seen := make(map[*Client]bool)
	var out []*Client
	add := func(c *Client) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	if ev.Broadcast {
		for c := range h.clients {
			if c.room != "" && c.restaurantID == ev.RestaurantID {
				add(c)
			}
		}
	}
	for _, room := range ev.Rooms {
		for c := range h.rooms[RoomKey(ev.RestaurantID, room)] {
			add(c)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		h.dropLocked(c)
	}
	h.mu.Unlock()
	metrics.RealtimeClients.Set(0)
}
