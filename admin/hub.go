package admin

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/indigo-web/miniserve/actor"
	json "github.com/json-iterator/go"
)

const (
	sendQueue    = 16
	writeTimeout = 5 * time.Second
)

// Heartbeat is the frame sent to every subscriber on each actor heartbeat.
type Heartbeat struct {
	ElapsedMS int64 `json:"elapsed_ms"`
	Pending   int   `json:"pending"`
}

var _ actor.Observer = new(Hub)

// Hub streams actor heartbeats to websocket subscribers. Slow subscribers miss
// frames instead of delaying the actor.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]chan []byte
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]chan []byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the connection and keeps it subscribed until the peer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "err", err)
		return
	}

	send := make(chan []byte, sendQueue)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	go h.write(conn, send)

	// the stream is one-way, reading only detects the peer leaving
	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(conn)
}

func (h *Hub) write(conn *websocket.Conn, send <-chan []byte) {
	for frame := range send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			h.remove(conn)
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	send, found := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if found {
		close(send)
		_ = conn.Close()
	}
}

// Heartbeat broadcasts the frame to every subscriber.
func (h *Hub) Heartbeat(elapsed time.Duration, pending int) {
	frame, err := json.Marshal(Heartbeat{
		ElapsedMS: elapsed.Milliseconds(),
		Pending:   pending,
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, send := range h.clients {
		select {
		case send <- frame:
		default:
		}
	}
}

func (h *Hub) Finished(actor.Outcome, time.Duration) {}

// Clients returns the number of current subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Close disconnects all the subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, send := range h.clients {
		close(send)
		_ = conn.Close()
		delete(h.clients, conn)
	}
}
