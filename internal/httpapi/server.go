package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkarasev/exchange-api/internal/auth"
	"github.com/pkarasev/exchange-api/internal/exchange"
	"github.com/pkarasev/exchange-api/internal/version"
)

// Pinger is what the health endpoint needs from the storage backend. The
// memory store doesn't have one; health then only reports liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the domain components to HTTP routes.
type Server struct {
	store     exchange.Store
	processor *exchange.Processor
	users     auth.UserStore
	tokens    *auth.Authority
	feed      *TradeFeed
	db        Pinger
	logger    *slog.Logger

	bcryptCost int
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithDB attaches a pingable storage backend to the health endpoint.
func WithDB(db Pinger) ServerOption {
	return func(s *Server) { s.db = db }
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) ServerOption {
	return func(s *Server) { s.bcryptCost = cost }
}

// WithServerLogger sets the server's logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates the transport layer over the given domain components.
func NewServer(
	store exchange.Store,
	processor *exchange.Processor,
	users auth.UserStore,
	tokens *auth.Authority,
	feed *TradeFeed,
	opts ...ServerOption,
) *Server {
	s := &Server{
		store:     store,
		processor: processor,
		users:     users,
		tokens:    tokens,
		feed:      feed,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)

	mux.HandleFunc("POST /users/{$}", s.requireAuth(s.handleCreateAccount))
	mux.HandleFunc("GET /users/{username}", s.handleGetAccount)

	mux.HandleFunc("POST /create_stock", s.requireAuth(s.handleCreateStock))
	mux.HandleFunc("GET /stocks/{$}", s.handleListStocks)
	mux.HandleFunc("GET /stocks/{ticker}", s.handleGetStock)

	mux.HandleFunc("POST /transactions/{$}", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("GET /transactions/{username}", s.handleListTransactions)
	mux.HandleFunc("GET /transactions/{username}/{start}/{end}", s.handleListTransactionsInRange)

	if s.feed != nil {
		mux.HandleFunc("GET /stream/trades", s.feed.handleSubscribe)
	}

	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string         `json:"status"`
		Version    string         `json:"version"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Version:    version.String(),
		Components: make(map[string]any),
	}

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"
		}
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}
