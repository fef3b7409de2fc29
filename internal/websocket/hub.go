package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-screenwriting-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	logModule    = "Hub"
	redisChannel = "agent_session_events"
)

// Frame types pushed to session subscribers.
const (
	FrameSnapshot      = "snapshot"
	FrameEffect        = "effect"
	FrameInsert        = "insert"
	FrameEntityCreated = "entity_created"
)

type Frame struct {
	Type      string      `json:"type"`
	SessionID uuid.UUID   `json:"session_id"`
	Data      interface{} `json:"data"`
}

// redisEnvelope carries a frame between instances. Origin lets an instance skip
// frames it already delivered locally.
type redisEnvelope struct {
	Origin    string          `json:"origin"`
	SessionID uuid.UUID       `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

// Hub fans session frames out to every connected client of that session,
// across instances when redis is configured.
type Hub struct {
	// session ID -> connected clients (multi-tab)
	clients map[uuid.UUID]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run owns client registration until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.clients {
				for c := range clients {
					close(c.Send)
				}
			}
			h.clients = make(map[uuid.UUID]map[*Client]struct{})
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.SessionID] == nil {
				h.clients[client.SessionID] = make(map[*Client]struct{})
			}
			h.clients[client.SessionID][client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info(logModule, "Client registered", map[string]interface{}{
				"session_id": client.SessionID,
				"user_id":    client.UserID,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
				}
				if len(clients) == 0 {
					delete(h.clients, client.SessionID)
					h.logger.Info(logModule, "Session has no clients left", map[string]interface{}{"session_id": client.SessionID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register blocks until Run has accepted the client.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of local clients watching a session.
func (h *Hub) ClientCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// SendSession delivers a frame to every client of the session.
func (h *Hub) SendSession(sessionID uuid.UUID, frameType string, data interface{}) {
	message, err := json.Marshal(Frame{Type: frameType, SessionID: sessionID, Data: data})
	if err != nil {
		h.logger.Error(logModule, "Failed to encode frame", map[string]interface{}{"type": frameType, "error": err.Error()})
		return
	}

	h.deliverLocal(sessionID, message)

	if h.rdb != nil {
		payload, _ := json.Marshal(redisEnvelope{Origin: h.instanceID, SessionID: sessionID, Message: message})
		if err := h.rdb.Publish(context.Background(), redisChannel, payload).Err(); err != nil {
			h.logger.Warn(logModule, "Redis publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) deliverLocal(sessionID uuid.UUID, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[sessionID] {
		select {
		case client.Send <- message:
		default:
			h.logger.Warn(logModule, "Client send buffer full, dropping client", map[string]interface{}{"session_id": sessionID})
			go h.Unregister(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env redisEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.logger.Warn(logModule, "Redis message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if env.Origin == h.instanceID {
				continue
			}
			h.deliverLocal(env.SessionID, env.Message)
		}
	}
}
