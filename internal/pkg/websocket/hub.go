package websocket

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MessageTypeNotification marks frames that carry a notification
const MessageTypeNotification = "notification"

// Message is the frame pushed to connected clients
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// delivery is a message addressed to every connection of one user
type delivery struct {
	userID uuid.UUID
	data   []byte
}

// Hub keeps the open connections per user and fans frames out to them
type Hub struct {
	// Registered clients organized by user ID
	clients map[uuid.UUID]map[*Client]bool

	deliver    chan delivery
	register   chan *Client
	unregister chan *Client

	// stopped is closed when Run returns
	stopped chan struct{}

	mu sync.RWMutex

	// deliveryListeners are called with the user ID and the number of
	// connections reached for every delivered frame
	listenersMu       sync.RWMutex
	deliveryListeners []func(userID uuid.UUID, reached int)

	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		deliver:    make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		logger:     logger.With().Str("component", "ws_hub").Logger(),
	}
}

// Run handles registrations and deliveries until done is closed
func (h *Hub) Run(done <-chan struct{}) {
	defer close(h.stopped)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case d := <-h.deliver:
			h.deliverMessage(d)

		case <-done:
			h.closeAll()
			return
		}
	}
}

// Register adds client unless the hub has stopped
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stopped:
		return false
	}
}

// Unregister removes client unless the hub has stopped
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Debug().
		Str("userID", client.userID.String()).
		Str("addr", client.remoteAddr()).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

// removeLocked drops client and closes its send channel. h.mu must be held.
func (h *Hub) removeLocked(client *Client) {
	conns, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}

	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(h.clients, client.userID)
	}

	h.logger.Debug().
		Str("userID", client.userID.String()).
		Str("addr", client.remoteAddr()).
		Msg("Client unregistered")
}

func (h *Hub) deliverMessage(d delivery) {
	h.mu.Lock()
	reached := 0
	for client := range h.clients[d.userID] {
		select {
		case client.send <- d.data:
			reached++
		default:
			// send buffer full, the client is too slow to keep
			h.removeLocked(client)
		}
	}
	h.mu.Unlock()

	h.notifyDeliveryListeners(d.userID, reached)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.clients {
		for client := range conns {
			h.removeLocked(client)
		}
	}
}

func (h *Hub) notifyDeliveryListeners(userID uuid.UUID, reached int) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()
	for _, fn := range h.deliveryListeners {
		fn(userID, reached)
	}
}

// SendToUser queues a frame for every connection of userID. It never
// blocks; the frame is dropped when the hub is saturated.
func (h *Hub) SendToUser(userID uuid.UUID, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case h.deliver <- delivery{userID: userID, data: data}:
	default:
		h.logger.Warn().Str("userID", userID.String()).Msg("Hub saturated, frame dropped")
	}
	return nil
}

// SendNotification wraps payload in a notification frame
func (h *Hub) SendNotification(userID uuid.UUID, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.SendToUser(userID, &Message{Type: MessageTypeNotification, Data: data})
}

// GetClientsCount returns the number of open connections of a user
func (h *Hub) GetClientsCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// ConnectedUsers returns the number of users with at least one connection
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// AddDeliveryListener registers fn to be called after every delivery
func (h *Hub) AddDeliveryListener(fn func(userID uuid.UUID, reached int)) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.deliveryListeners = append(h.deliveryListeners, fn)
}
