package events

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/taskhub/project-management-api/internal/logging"
)

// EventType keys subscriptions.
type EventType string

const (
	EventTaskCreated    EventType = "task_created"
	EventTaskUpdated    EventType = "task_updated"
	EventTaskDeleted    EventType = "task_deleted"
	EventProjectUpdated EventType = "project_updated"
	EventCommentAdded   EventType = "comment_added"
	EventNotification   EventType = "notification"
)

// knownEventTypes is the full subscription set used when a client does not
// narrow its interest.
var knownEventTypes = []EventType{
	EventTaskCreated,
	EventTaskUpdated,
	EventTaskDeleted,
	EventProjectUpdated,
	EventCommentAdded,
	EventNotification,
}

// Event is one published occurrence.
type Event struct {
	Type       EventType   `json:"type"`
	Payload    interface{} `json:"payload"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Publisher is the write side of the hub. Handlers publish through this so
// tests can swap the hub out.
type Publisher interface {
	Publish(eventType EventType, payload interface{})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks belong to the deployment proxy.
		return true
	},
}

// Client is one connected subscriber.
type Client struct {
	id    uuid.UUID
	conn  *websocket.Conn
	send  chan []byte
	types map[EventType]bool
}

// Hub fans published events out to WebSocket subscribers by event type. It is
// constructed and injected explicitly; Run and Close bound its lifecycle.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	events     chan Event
	done       chan struct{}

	mu          sync.RWMutex
	subscribers map[EventType]map[*Client]bool

	closeOnce sync.Once
}

// NewHub creates a stopped hub; call Run to start delivery.
func NewHub() *Hub {
	return &Hub{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		events:      make(chan Event, 64),
		done:        make(chan struct{}),
		subscribers: make(map[EventType]map[*Client]bool),
	}
}

// Run delivers events until Close is called. Callers run it in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			for t := range client.types {
				if h.subscribers[t] == nil {
					h.subscribers[t] = make(map[*Client]bool)
				}
				h.subscribers[t][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.removeClient(client)

		case event := <-h.events:
			h.deliver(event)

		case <-h.done:
			h.mu.Lock()
			for _, clients := range h.subscribers {
				for client := range clients {
					close(client.send)
				}
			}
			h.subscribers = make(map[EventType]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Close stops delivery and disconnects all subscribers.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// Publish enqueues an event. Delivery is fire-and-forget; a full queue drops
// the event rather than blocking a request.
func (h *Hub) Publish(eventType EventType, payload interface{}) {
	event := Event{Type: eventType, Payload: payload, OccurredAt: time.Now()}
	select {
	case h.events <- event:
	case <-h.done:
	default:
		logging.Logger.WithField("event_type", eventType).Warn("event queue full, dropping event")
	}
}

func (h *Hub) deliver(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.Logger.WithError(err).Error("failed to encode event")
		return
	}

	h.mu.RLock()
	clients := h.subscribers[event.Type]
	stale := []*Client{}
	for client := range clients {
		select {
		case client.send <- data:
		default:
			// Slow consumer; drop the connection, not the hub.
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.removeClient(client)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := false
	for t := range client.types {
		if clients, ok := h.subscribers[t]; ok {
			if clients[client] {
				delete(clients, client)
				removed = true
			}
			if len(clients) == 0 {
				delete(h.subscribers, t)
			}
		}
	}
	if removed {
		close(client.send)
	}
}

// registerClient hands a client to the loop. A closed hub refuses it so late
// upgrades cannot block on a loop that already exited.
func (h *Hub) registerClient(client *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// unregisterClient hands a client back to the loop. After Close the loop is
// gone and its channels have no reader, so the send must not block.
func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SubscriberCount reports how many clients listen for an event type.
func (h *Hub) SubscriberCount(eventType EventType) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[eventType])
}

// ServeWS upgrades the request and registers the client. The optional
// "events" query parameter narrows the subscription to a comma-separated list
// of event types.
func (h *Hub) ServeWS(c *gin.Context) {
	types := parseEventTypes(c.Query("events"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		id:    uuid.New(),
		conn:  conn,
		send:  make(chan []byte, 256),
		types: types,
	}

	if !h.registerClient(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

func parseEventTypes(raw string) map[EventType]bool {
	types := make(map[EventType]bool)
	if raw == "" {
		for _, t := range knownEventTypes {
			types[t] = true
		}
		return types
	}
	for _, part := range strings.Split(raw, ",") {
		t := EventType(strings.TrimSpace(part))
		for _, known := range knownEventTypes {
			if t == known {
				types[t] = true
			}
		}
	}
	if len(types) == 0 {
		for _, t := range knownEventTypes {
			types[t] = true
		}
	}
	return types
}

func (c *Client) writePump() {
	pingTicker := time.NewTicker(15 * time.Second)
	defer func() {
		pingTicker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the channel is server-to-client only. It
// exists to notice disconnects and answer pings.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Logger.WithError(err).Debug("websocket read error")
			}
			return
		}
	}
}
