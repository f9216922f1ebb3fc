// Package trade — WebSocket hub broadcasting the public trade tape.
package trade

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brokersim/ledger-engine/internal/metrics"
)

// TapeMessage is a JSON message sent to trade-tape subscribers. User
// identifiers are intentionally absent: the tape is public.
type TapeMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Shares int64  `json:"shares"`
	Price  string `json:"price"`
}

// Feed manages WebSocket connections and broadcasts a message to all
// connected clients whenever a trade commits.
type Feed struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewFeed creates a new trade-tape hub.
func NewFeed() *Feed {
	return &Feed{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (f *Feed) Run() {
	for {
		select {
		case conn := <-f.register:
			f.mu.Lock()
			f.clients[conn] = true
			f.mu.Unlock()
			metrics.WebSocketClients.Inc()
			slog.Info("tape client connected", "total", len(f.clients))

		case conn := <-f.unregister:
			f.mu.Lock()
			if _, ok := f.clients[conn]; ok {
				delete(f.clients, conn)
				conn.Close()
				metrics.WebSocketClients.Dec()
			}
			f.mu.Unlock()

		case msg := <-f.broadcast:
			f.mu.RLock()
			var dead []*websocket.Conn
			for conn := range f.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					dead = append(dead, conn)
				}
			}
			f.mu.RUnlock()

			f.mu.Lock()
			for _, conn := range dead {
				if _, ok := f.clients[conn]; ok {
					delete(f.clients, conn)
					conn.Close()
					metrics.WebSocketClients.Dec()
				}
			}
			f.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected clients.
func (f *Feed) Broadcast(msg TapeMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case f.broadcast <- data:
	default:
		// Drop if buffer full to avoid blocking trade execution.
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/v1/ws.
func (f *Feed) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	f.register <- conn

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() { f.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep connection alive through proxies.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			f.mu.RLock()
			_, ok := f.clients[conn]
			f.mu.RUnlock()
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}
