package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"forex-signal-go/internal/quotes"
	"forex-signal-go/internal/twelvedata"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier func(token string) (uint, error)

type client struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	userID uint
}

// write serializes writes; the underlying connection allows one writer.
func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// user reads the authenticated id; it is set from the read loop while
// broadcasts run on other goroutines.
func (c *client) user() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *client) setUser(id uint) {
	c.mu.Lock()
	c.userID = id
	c.mu.Unlock()
}

// Hub pushes live prices to every connected browser and targeted
// notifications to authenticated ones. Clients authenticate in-band by
// sending an AUTH message carrying their session token.
type Hub struct {
	logger   *zap.Logger
	source   quotes.SourceInterface
	verify   TokenVerifier
	symbols  []string
	interval time.Duration

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(logger *zap.Logger, source quotes.SourceInterface, verify TokenVerifier, symbols []string, interval time.Duration) *Hub {
	return &Hub{
		logger:   logger,
		source:   source,
		verify:   verify,
		symbols:  symbols,
		interval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// HandleConnection upgrades the request and serves the client until it
// disconnects.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket connection", zap.Error(err))
		return
	}

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("Websocket client connected")

	h.readLoop(c)
}

type inboundMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.logger.Warn("Failed to parse websocket message", zap.Error(err))
			continue
		}

		if msg.Type == "AUTH" && msg.Token != "" {
			userID, err := h.verify(msg.Token)
			if err != nil {
				h.logger.Warn("Websocket auth failed", zap.Error(err))
				return
			}
			c.setUser(userID)
			h.logger.Info("Websocket client authenticated", zap.Uint("user_id", userID))
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	_ = c.conn.Close()
	h.logger.Info("Websocket client disconnected", zap.Uint("user_id", c.user()))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run broadcasts live prices until ctx is cancelled. The next broadcast is
// scheduled only after the previous one finishes, so a slow provider call
// never stacks broadcasts.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Starting price broadcaster", zap.Duration("interval", h.interval))

	timer := time.NewTimer(h.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Stopping price broadcaster...")
			return
		case <-timer.C:
			h.broadcastPrices(ctx)
			timer.Reset(h.interval)
		}
	}
}

type errorPayload struct {
	Error   bool   `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (h *Hub) broadcastPrices(ctx context.Context) {
	// No clients means no reason to spend a provider credit.
	if h.ClientCount() == 0 {
		return
	}

	prices, err := h.source.GetQuotes(ctx, h.symbols)
	if err != nil {
		var payload errorPayload
		if errors.Is(err, twelvedata.ErrRateLimited) {
			h.logger.Warn("Price broadcast hit provider rate limit, auto-retrying")
			payload = errorPayload{Error: true, Type: "RATE_LIMIT", Message: "Rate limit reached. Auto-retrying..."}
		} else {
			h.logger.Error("Failed to fetch prices for broadcast", zap.Error(err))
			payload = errorPayload{Error: true, Message: "Failed to fetch live prices from provider.", Details: err.Error()}
		}
		h.broadcast(payload)
		return
	}

	out := make(map[string]float64, len(prices))
	for symbol, p := range prices {
		if p != nil {
			out[symbol] = *p
		}
	}
	h.broadcast(out)
}

// broadcast sends the payload to every connected client.
func (h *Hub) broadcast(payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to encode broadcast payload", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(raw); err != nil {
			h.logger.Debug("Failed to write to websocket client", zap.Error(err))
		}
	}
}

// NotifyUsers sends the payload to the authenticated clients of the given
// users only.
func (h *Hub) NotifyUsers(userIDs []uint, payload any) {
	if len(userIDs) == 0 {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to encode notification payload", zap.Error(err))
		return
	}
	wanted := make(map[uint]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if id := c.user(); id != 0 {
			if _, ok := wanted[id]; ok {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(raw); err != nil {
			h.logger.Debug("Failed to notify websocket client", zap.Error(err))
		}
	}
}
