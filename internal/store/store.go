// Package store defines the persistence interface for the ledger engine.
// Implementations include PostgreSQL (source of truth) and in-memory
// (for testing and development).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/brokersim/ledger-engine/internal/model"
)

var (
	// ErrUserNotFound is returned when a user ID or username does not exist.
	ErrUserNotFound = errors.New("store: user not found")

	// ErrUsernameTaken is returned by CreateUser on a duplicate username.
	ErrUsernameTaken = errors.New("store: username already taken")
)

// Store is the persistence interface. The transaction log is append-only:
// no update or delete operations exist for transactions.
type Store interface {
	// --- User accounts ---

	// CreateUser persists a new user with its starting cash balance.
	CreateUser(ctx context.Context, u *model.User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id string) (*model.User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// --- Transaction log ---

	// CommitTrade atomically sets the user's cash balance and appends one
	// immutable transaction. Either both mutations are committed or
	// neither is observed.
	CommitTrade(ctx context.Context, userID string, newCash decimal.Decimal, tx *model.Transaction) error

	// TransactionsByUser returns a user's full transaction history in
	// insertion order.
	TransactionsByUser(ctx context.Context, userID string) ([]model.Transaction, error)
}
