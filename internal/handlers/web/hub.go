package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/KirkDiggler/rpg-codex/internal/router"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

// Message types sent by the page
const (
	MessagePopState  = "popstate"
	MessageLinkClick = "click"
	MessageBack      = "back"
)

// ClientMessage is an event reported by the page over the socket
type ClientMessage struct {
	Type   string `json:"type"`
	Path   string `json:"path,omitempty"`
	Href   string `json:"href,omitempty"`
	OptOut bool   `json:"opt_out,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// client is one connected page
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans committed pages out to every connected client
type hub struct {
	router router.Router

	mu          sync.Mutex
	clients     map[*client]bool
	unsubscribe func()
}

func newHub(r router.Router) *hub {
	h := &hub{
		router:  r,
		clients: make(map[*client]bool),
	}
	h.unsubscribe = r.OnPage(h.broadcast)
	return h
}

func (h *hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// broadcast queues page for every client; slow clients miss updates
func (h *hub) broadcast(page router.Page) {
	message, err := json.Marshal(page)
	if err != nil {
		slog.Error("failed to encode page", "path", page.Path, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- message:
		default:
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) close() {
	h.unsubscribe()

	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
		_ = c.conn.Close()
	}
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.hub.register(c)
	slog.DebugContext(r.Context(), "live update client connected", "clients", h.hub.count())

	go h.writePump(c)
	h.readPump(context.WithoutCancel(r.Context()), c)
}

func (h *Handler) writePump(c *client) {
	defer func() { _ = c.conn.Close() }()

	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			slog.Debug("live update write failed", "error", err)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump turns page events into router calls until the connection closes
func (h *Handler) readPump(ctx context.Context, c *client) {
	defer h.hub.unregister(c)

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "live update read failed", "error", err)
			}
			return
		}

		switch msg.Type {
		case MessagePopState:
			h.router.HandlePopState(ctx, msg.Path)
		case MessageLinkClick:
			h.router.HandleLinkClick(ctx, msg.Href, msg.OptOut)
		case MessageBack:
			h.router.Back(ctx)
		default:
			slog.WarnContext(ctx, "ignoring unknown live update message", "type", msg.Type)
		}
	}
}
