package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Event names delivered over the user channel.
const (
	EventNotification  = "notification"
	EventAssignment    = "assignment"
	EventHierarchyMove = "hierarchy_move"
	EventProjectStatus = "project_status"
)

// Hub maintains user_id -> set of connections and delivers events to them.
// Uses Redis pub/sub for horizontal scaling: events are published to the
// user's channel and every instance (this one included) delivers to its
// local connections from the subscription callback, so no client sees a
// duplicate.
type Hub struct {
	// userID -> map[clientID]*Client
	users  map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func() // cancel Redis subscription per user
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// Publisher publishes an event to a user's channel (for cross-instance delivery).
type Publisher interface {
	PublishUserEvent(userID uuid.UUID, event string, payload []byte) error
}

// Subscriber subscribes to a user's channel and invokes handler for incoming events.
type Subscriber interface {
	SubscribeUser(userID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	return &Hub{
		users:  make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a connection for a user. Starts the user's Redis
// subscription when this is their first connection on this instance.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[string]*Client)
		if h.sub != nil {
			cancel, err := h.sub.SubscribeUser(c.UserID, func(event string, payload []byte) {
				h.deliver(c.UserID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.UserID] = cancel
			}
		}
	}
	h.users[c.UserID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.String("user_id", c.UserID.String()))
}

// Unregister removes a connection. Cancels the Redis subscription when the
// user's last connection on this instance closes.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.users[c.UserID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.users, c.UserID)
			if cancel, ok := h.subs[c.UserID]; ok {
				cancel()
				delete(h.subs, c.UserID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID), zap.String("user_id", c.UserID.String()))
}

// deliver sends a message to the user's local connections only.
func (h *Hub) deliver(userID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.users[userID]
	h.mu.RUnlock()

	if clients == nil {
		return
	}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish delivers an event to every connection the user has, on any
// instance. With Redis wired the event goes through pub/sub only and the
// subscription callback performs the local delivery once; without Redis it
// falls back to local delivery.
func (h *Hub) Publish(userID uuid.UUID, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	if h.pub != nil {
		if err := h.pub.PublishUserEvent(userID, event, payload); err != nil {
			h.logger.Warn("publish user event", zap.String("user_id", userID.String()), zap.Error(err))
		}
		return
	}
	h.deliver(userID, event, json.RawMessage(payload))
}
