package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/luki/sensorapp/internal/sensor"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	clientBuffer   = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub fans live records out to websocket clients. It is a sensor.Sink:
// AddLine never blocks, and a client that cannot keep up is disconnected
// instead of slowing the capture down.
type Hub struct {
	logger *zap.Logger

	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}

	clients atomic.Int64
	dropped atomic.Int64
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns a hub. Run must be called for it to deliver anything.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger.With(zap.String("component", "stream")),
		broadcast:  make(chan []byte, clientBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int { return int(h.clients.Load()) }

// Dropped returns how many records were discarded because the hub was
// saturated.
func (h *Hub) Dropped() int { return int(h.dropped.Load()) }

// AddLine implements sensor.Sink.
func (h *Hub) AddLine(rec sensor.Record) {
	if h.clients.Load() == 0 {
		return
	}
	msg, err := json.Marshal(rec)
	if err != nil {
		h.logger.Warn("cannot encode record for stream", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
	}
}

// Run owns the client set until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*client]bool)
	remove := func(c *client) {
		if clients[c] {
			delete(clients, c)
			close(c.send)
			h.clients.Store(int64(len(clients)))
		}
	}
	defer func() {
		for c := range clients {
			remove(c)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			clients[c] = true
			h.clients.Store(int64(len(clients)))
			h.logger.Debug("stream client connected", zap.Int("clients", len(clients)))
		case c := <-h.unregister:
			remove(c)
			h.logger.Debug("stream client disconnected", zap.Int("clients", len(clients)))
		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Info("dropping slow stream client")
					remove(c)
				}
			}
		}
	}
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, clientBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only watches for the peer going away; clients send nothing.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
