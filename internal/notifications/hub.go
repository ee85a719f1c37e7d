package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"moments/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerFull  = errors.New("server connection limit reached")
	ErrUserFull    = errors.New("user connection limit reached")
	ErrHubShutdown = errors.New("hub is shut down")
)

// FollowGraph answers whether one user follows another.
type FollowGraph interface {
	IsFollowing(ctx context.Context, followerID, followedID string) bool
}

// Hub is a websocket hub that maps userID -> set of Clients and fans feed
// items out to the actor and the actor's followers.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
	closed     bool

	graph  FollowGraph
	logger *observability.WSLogger
}

// NewHub creates a new Hub that consults graph when fanning out feed items.
func NewHub(graph FollowGraph) *Hub {
	return &Hub{
		conns:  make(map[string]map[*Client]struct{}),
		graph:  graph,
		logger: observability.NewWSLogger("feed hub"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "feed hub" }

// Register a connection for a given userID. Returns the Client or error if limits exceeded.
func (h *Hub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubShutdown
	}
	if h.totalConns >= maxTotalConns {
		return nil, ErrServerFull
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, ErrUserFull
	}

	client := NewClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()
	h.logger.LogConnect(context.Background(), userID)
	return client, nil
}

// UnregisterClient removes client from the hub. It is safe to call twice.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.UserID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	h.totalConns--
	observability.WebSocketConnectionsTotal.Dec()
	if len(m) == 0 {
		delete(h.conns, client.UserID)
	}
	h.logger.LogDisconnect(context.Background(), client.UserID, "unregistered")
}

// Broadcast sends message to all connections for userID
func (h *Hub) Broadcast(userID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[userID] {
		c.TrySend(message)
	}
}

// ConnectedUsers returns the ids of users with at least one connection.
func (h *Hub) ConnectedUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.conns))
	for id := range h.conns {
		out = append(out, id)
	}
	return out
}

// DeliverFeedPayload sends a published feed event to the actor's own
// connections and to every connected user following the actor. Payloads that
// are not feed events are dropped.
func (h *Hub) DeliverFeedPayload(payload string) {
	var event FeedEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil || event.Type != EventFeedItem {
		observability.WebSocketBackpressureDrops.WithLabelValues(h.Name(), "malformed").Inc()
		return
	}

	actor := event.Payload.UserID
	ctx := context.Background()
	message := []byte(payload)
	for _, userID := range h.ConnectedUsers() {
		if userID == actor || (h.graph != nil && h.graph.IsFollowing(ctx, userID, actor)) {
			h.Broadcast(userID, message)
		}
	}
}

// StartWiring connects the Notifier to this hub: every feed item published
// through n is delivered to matching connections.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartFeedSubscriber(ctx, h.DeliverFeedPayload)
}

// Shutdown gracefully closes all websocket connections
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	for userID, userConns := range h.conns {
		for client := range userConns {
			observability.WebSocketConnectionsTotal.Dec()
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				h.logger.LogError(ctx, userID, err, "close_message")
			}
			if err := client.Conn.Close(); err != nil {
				h.logger.LogError(ctx, userID, err, "close")
			}
		}
	}
	h.conns = make(map[string]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
