package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/pkarasev/exchange-api/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TradeFeed pushes every settled transaction to websocket subscribers. It
// is wired to the processor as its post-commit observer, so subscribers
// only ever see transactions that committed.
type TradeFeed struct {
	logger *slog.Logger

	clients    map[*websocket.Conn]bool
	clientsMu  sync.Mutex
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

// NewTradeFeed creates a feed. Call Run before publishing.
func NewTradeFeed(logger *slog.Logger) *TradeFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &TradeFeed{
		logger:     logger,
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run drives the hub until ctx is cancelled. All subscriber connections are
// closed on exit.
func (f *TradeFeed) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			f.clientsMu.Lock()
			for conn := range f.clients {
				conn.Close()
			}
			f.clients = make(map[*websocket.Conn]bool)
			f.clientsMu.Unlock()
			return
		case conn := <-f.register:
			f.clientsMu.Lock()
			f.clients[conn] = true
			f.clientsMu.Unlock()
		case conn := <-f.unregister:
			f.clientsMu.Lock()
			if _, ok := f.clients[conn]; ok {
				delete(f.clients, conn)
				conn.Close()
			}
			f.clientsMu.Unlock()
		case msg := <-f.broadcast:
			f.clientsMu.Lock()
			for conn := range f.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					// Evict outside the write loop to avoid blocking it.
					go func(c *websocket.Conn) { f.unregister <- c }(conn)
				}
			}
			f.clientsMu.Unlock()
		}
	}
}

// Publish queues a settled transaction for broadcast. Drops the message if
// the feed is saturated; the feed is best-effort, the ledger is the record.
func (f *TradeFeed) Publish(txn model.Transaction) {
	msg, err := json.Marshal(txn)
	if err != nil {
		f.logger.Error("encode transaction for feed", "error", err)
		return
	}
	select {
	case f.broadcast <- msg:
	default:
		f.logger.Warn("trade feed saturated, dropping message")
	}
}

// handleSubscribe upgrades the connection and keeps it registered until the
// client goes away. Nothing is read from subscribers beyond connection
// liveness.
func (f *TradeFeed) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	f.register <- conn

	for {
		if _, _, err := conn.NextReader(); err != nil {
			f.unregister <- conn
			return
		}
	}
}
