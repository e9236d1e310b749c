package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/access"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

type Verifier interface {
	Verify(ctx context.Context, token string) (*internal.Actor, error)
}

type RightsLookup interface {
	Rights(ctx context.Context, email string) (access.Rights, error)
}

// Message is one frame sent to dashboard clients.
type Message struct {
	Type      string         `json:"type"`
	EventID   string         `json:"eventId"`
	Timestamp time.Time      `json:"timestamp"`
	Data      events.Payload `json:"data"`
}

type client struct {
	email   string
	seeAll  bool
	conn    *websocket.Conn
	send    chan []byte
	closing sync.Once
}

func (c *client) close() {
	c.closing.Do(func() { close(c.send) })
}

// Hub fans expense events out to websocket clients. Admins and area holders
// receive every event; other users receive events for their own expenses.
type Hub struct {
	verifier Verifier
	rights   RightsLookup
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(verifier Verifier, rights RightsLookup, allowedOrigins string, logger *slog.Logger) *Hub {
	return &Hub{
		verifier: verifier,
		rights:   rights,
		logger:   logger,
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowedOrigins string) func(r *http.Request) bool {
	allowed := map[string]bool{}
	for _, origin := range strings.Split(allowedOrigins, ",") {
		allowed[strings.TrimSpace(origin)] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[""] || allowed[origin]
	}
}

func (h *Hub) Register(bus *events.EventBus) {
	bus.SubscribeAll(events.ExpenseEventTypes, h.HandleEvent)
}

// HandleEvent never fails the publisher; slow clients are dropped.
func (h *Hub) HandleEvent(ctx context.Context, event events.Event) error {
	expenseEvent, ok := event.(*events.ExpenseEvent)
	if !ok {
		return nil
	}

	payload := expenseEvent.WirePayload()
	frame, err := json.Marshal(Message{
		Type:      payload.Type,
		EventID:   event.EventID(),
		Timestamp: event.OccurredAt(),
		Data:      payload,
	})
	if err != nil {
		h.logger.Error("failed to encode realtime frame", "error", err, "event_id", event.EventID())
		return nil
	}

	owner := internal.NormalizeEmail(payload.Expense.User.Email)

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.seeAll && c.email != owner {
			continue
		}
		select {
		case c.send <- frame:
		default:
			h.logger.Warn("dropping slow realtime client", "email", c.email)
			delete(h.clients, c)
			c.close()
		}
	}
	return nil
}

// ClientCount is the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS authenticates with the token query parameter, since browsers cannot
// set headers on websocket handshakes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	actor, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	rights, err := h.rights.Rights(r.Context(), actor.Email)
	if err != nil {
		h.logger.Error("failed to resolve rights for realtime client", "error", err, "email", actor.NormalizedEmail())
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		email:  actor.NormalizedEmail(),
		seeAll: rights.CanSeeAll(),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	h.add(c)
	h.logger.Info("realtime client connected", "email", c.email, "see_all", c.seeAll)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// readPump only watches for pongs and the close frame; clients do not send
// commands.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		h.logger.Info("realtime client disconnected", "email", c.email)
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
