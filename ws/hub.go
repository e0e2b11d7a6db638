package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"marketSimServer/config"
	"marketSimServer/engine"
	"marketSimServer/state"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Commands is the part of the engine a websocket client can drive.
type Commands interface {
	Join(ctx context.Context, username string) (engine.JoinReply, error)
	PlaceOrder(ctx context.Context, req engine.OrderRequest) (engine.OrderReply, error)
	Admin(ctx context.Context, action, symbol string) (state.ClockState, error)
}

// ClientConnection is one connected browser tab
type ClientConnection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	hub      *Hub
	mu       sync.RWMutex
	username string
}

// Username returns the participant this connection joined as.
func (c *ClientConnection) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

type delivery struct {
	to      string // empty means everyone
	payload []byte
}

// Hub fans engine events out to websocket clients. Broadcast and SendTo
// never block; when the hub queue or a client buffer is full the message is
// dropped for that client.
type Hub struct {
	clients map[*ClientConnection]bool
	byUser  map[string]map[*ClientConnection]bool
	mu      sync.RWMutex

	register   chan *ClientConnection
	unregister chan *ClientConnection
	outbox     chan delivery
	done       chan struct{}

	idCounter int64
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*ClientConnection]bool),
		byUser:     make(map[string]map[*ClientConnection]bool),
		register:   make(chan *ClientConnection),
		unregister: make(chan *ClientConnection),
		outbox:     make(chan delivery, config.RedisPublishBuffer),
		done:       make(chan struct{}),
	}
}

// Run is the central dispatcher. It returns when ctx is cancelled, closing
// every client connection.
func (h *Hub) Run(ctx context.Context) {
	log.Println("🚀 WebSocket hub started")

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				c.Conn.Close()
				delete(h.clients, c)
			}
			h.byUser = make(map[string]map[*ClientConnection]bool)
			h.mu.Unlock()
			log.Println("👋 WebSocket hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("✅ Client registered: %s (Total: %d)", c.ID, total)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				h.unbindLocked(c)
				close(c.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("👋 Client unregistered: %s (Total: %d)", c.ID, total)

		case d := <-h.outbox:
			h.deliver(d)
		}
	}
}

func (h *Hub) deliver(d delivery) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := h.clients
	if d.to != "" {
		targets = h.byUser[d.to]
	}
	for c := range targets {
		select {
		case c.Send <- d.payload:
		default:
			log.Printf("⚠️  Client %s send buffer full, skipping message", c.ID)
		}
	}
}

// Broadcast queues ev for every connected client.
func (h *Hub) Broadcast(ev engine.Event) {
	h.enqueue("", ev)
}

// SendTo queues ev for every connection joined as username.
func (h *Hub) SendTo(username string, ev engine.Event) {
	if username == "" {
		return
	}
	h.enqueue(username, ev)
}

func (h *Hub) enqueue(to string, ev engine.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("❌ Failed to marshal %s: %v", ev.Type, err)
		return
	}
	select {
	case h.outbox <- delivery{to: to, payload: data}:
	default:
		log.Printf("⚠️  Hub queue full, dropping %s", ev.Type)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// bind associates c with username so SendTo reaches it.
func (h *Hub) bind(c *ClientConnection, username string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unbindLocked(c)

	c.mu.Lock()
	c.username = username
	c.mu.Unlock()

	conns := h.byUser[username]
	if conns == nil {
		conns = make(map[*ClientConnection]bool)
		h.byUser[username] = conns
	}
	conns[c] = true
}

func (h *Hub) unbindLocked(c *ClientConnection) {
	name := c.Username()
	if name == "" {
		return
	}
	if conns := h.byUser[name]; conns != nil {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.byUser, name)
		}
	}
}

// Handler returns the /ws endpoint. Clients drive cmds through it.
func (h *Hub) Handler(cmds Commands) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Println("📥 WebSocket connection from:", r.RemoteAddr)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("❌ WebSocket upgrade failed:", err)
			return
		}

		c := &ClientConnection{
			ID:   fmt.Sprintf("client-%d", atomic.AddInt64(&h.idCounter, 1)),
			Conn: conn,
			Send: make(chan []byte, config.WSSendBuffer),
			hub:  h,
		}
		select {
		case h.register <- c:
		case <-h.done:
			conn.Close()
			return
		}

		go c.writePump()
		go c.readPump(cmds)
	}
}

// writePump sends queued messages and keeps the connection alive with pings
func (c *ClientConnection) writePump() {
	ticker := time.NewTicker(config.WSPingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ Write error for client %s: %v", c.ID, err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.hub.done:
			return
		}
	}
}

// readPump reads client commands until the connection drops
func (c *ClientConnection) readPump(cmds Commands) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
		return nil
	})

	for {
		_, messageBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ Read error for client %s: %v", c.ID, err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Printf("❌ Failed to parse message from client %s: %v", c.ID, err)
			c.sendError(fmt.Errorf("malformed message"))
			continue
		}

		c.handleMessage(cmds, msg)
	}
}

// sendError replies to this connection only.
func (c *ClientConnection) sendError(err error) {
	data, _ := json.Marshal(engine.Event{Type: "error", Data: map[string]string{"message": err.Error()}})
	select {
	case c.Send <- data:
	default:
	}
}
