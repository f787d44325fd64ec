package realtime

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"restoran-pos/internal/events"
	"restoran-pos/internal/logging"
	"restoran-pos/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// clientIDCounter orders clients so fan-out walks them deterministically.
var clientIDCounter atomic.Uint64

// Client bridges one websocket connection and the hub. room and restaurantID are owned by
// the hub lock.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	userID     uint
	role       models.UserRole
	restaurant string

	room         string
	restaurantID string
}

// NewClient wraps an authenticated connection. restaurant is the only restaurant the
// client may join.
func NewClient(hub *Hub, conn *websocket.Conn, userID uint, role models.UserRole, restaurant string) *Client {
	return &Client{
		id:         clientIDCounter.Add(1),
		hub:        hub,
		conn:       conn,
		send:       make(chan Message, clientSendQueueSize),
		userID:     userID,
		role:       role,
		restaurant: restaurant,
	}
}

func (c *Client) ID() uint64 { return c.id }

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinRequest struct {
	UserID       any             `json:"userId"`
	Role         models.UserRole `json:"role"`
	RestaurantID string          `json:"restaurantId"`
}

var (
	ErrRoleMismatch       = errors.New("requested role does not match the token")
	ErrUserMismatch       = errors.New("requested user does not match the token")
	ErrUnknownRestaurant  = errors.New("unknown restaurant")
	ErrNoRoomForRole      = errors.New("role has no realtime room")
	ErrMalformedHandshake = errors.New("malformed join request")
)

// RoomFor maps a staff role to its room. Customers have none.
func RoomFor(role models.UserRole) (events.Room, bool) {
	switch role {
	case models.RoleKitchenStaff:
		return events.RoomKitchen, true
	case models.RoleWaiter:
		return events.RoomWaiter, true
	case models.RoleManager:
		return events.RoomManager, true
	case models.RoleAdmin:
		return events.RoomAdmin, true
	case models.RoleCashier:
		return events.RoomCashier, true
	}
	return "", false
}

// resolveJoin checks a handshake against the token identity and returns the room key.
// Admins may join any room.
func (c *Client) resolveJoin(req joinRequest) (string, string, error) {
	if req.Role == "" {
		return "", "", ErrMalformedHandshake
	}
	if req.UserID != nil && fmt.Sprint(req.UserID) != fmt.Sprint(c.userID) {
		return "", "", ErrUserMismatch
	}
	if c.role != models.RoleAdmin && req.Role != c.role {
		return "", "", ErrRoleMismatch
	}
	room, ok := RoomFor(req.Role)
	if !ok {
		return "", "", ErrNoRoomForRole
	}
	restaurantID := req.RestaurantID
	if restaurantID == "" {
		restaurantID = c.restaurant
	}
	if restaurantID != c.restaurant {
		return "", "", ErrUnknownRestaurant
	}
	return restaurantID, RoomKey(restaurantID, room), nil
}

// handle processes one client frame. Unknown types are ignored.
func (c *Client) handle(msg inbound) {
	switch msg.Type {
	case MessageTypePing:
		c.hub.reply(c, Message{Type: MessageTypePong})

	case MessageTypeJoin:
		var req joinRequest
		if len(msg.Data) == 0 || json.Unmarshal(msg.Data, &req) != nil {
			c.hub.reply(c, errorMessage(ErrMalformedHandshake))
			return
		}
		restaurantID, key, err := c.resolveJoin(req)
		if err != nil {
			logging.Warn().Uint("user_id", c.userID).Str("role", string(c.role)).Str("requested", string(req.Role)).Err(err).Msg("websocket join rejected")
			c.hub.reply(c, errorMessage(err))
			return
		}
		if c.hub.join(c, restaurantID, key) {
			c.hub.reply(c, Message{Type: MessageTypeJoined, Data: map[string]string{"room": key}})
		}
	}
}

func errorMessage(err error) Message {
	return Message{Type: MessageTypeError, Data: map[string]string{"message": err.Error()}}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.reply(c, errorMessage(ErrMalformedHandshake))
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// Dropped by the hub.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				logging.Error().Err(err).Str("type", msg.Type).Msg("failed to encode websocket message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start registers the client and runs its pumps.
func (c *Client) Start() {
	c.hub.add(c)
	go c.writePump()
	go c.readPump()
}
