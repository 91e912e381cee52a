package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Credential store errors.
var (
	ErrDuplicateUser = errors.New("username already taken")
	ErrUserNotFound  = errors.New("user not found")
)

// User is a registered API user (credentials only; balances live in the
// accounts table).
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore persists registered users.
type UserStore interface {
	// CreateUser inserts a new user. Returns ErrDuplicateUser if the
	// username is taken.
	CreateUser(ctx context.Context, user User) error

	// GetUserByName returns the user or ErrUserNotFound.
	GetUserByName(ctx context.Context, username string) (User, error)

	// GetUserByID returns the user or ErrUserNotFound. Used to resolve
	// token subjects.
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
}

// PostgresUserStore is the production UserStore.
type PostgresUserStore struct {
	db *pgxpool.Pool
}

// NewPostgresUserStore wraps an existing pool.
func NewPostgresUserStore(db *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO auth_users (id, username, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) GetUserByName(ctx context.Context, username string) (User, error) {
	return s.getUser(ctx,
		`SELECT id, username, email, password_hash, created_at FROM auth_users WHERE username = $1`,
		username,
	)
}

func (s *PostgresUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return s.getUser(ctx,
		`SELECT id, username, email, password_hash, created_at FROM auth_users WHERE id = $1`,
		id,
	)
}

func (s *PostgresUserStore) getUser(ctx context.Context, sql string, arg any) (User, error) {
	var user User
	err := s.db.QueryRow(ctx, sql, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// MemoryUserStore is an in-memory UserStore for tests.
type MemoryUserStore struct {
	mu     sync.RWMutex
	byName map[string]User
	byID   map[uuid.UUID]User
}

// NewMemoryUserStore creates an empty MemoryUserStore.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byName: make(map[string]User),
		byID:   make(map[uuid.UUID]User),
	}
}

func (s *MemoryUserStore) CreateUser(ctx context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[user.Username]; ok {
		return ErrDuplicateUser
	}
	s.byName[user.Username] = user
	s.byID[user.ID] = user
	return nil
}

func (s *MemoryUserStore) GetUserByName(ctx context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byName[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *MemoryUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}
