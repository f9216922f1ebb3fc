package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/brokersim/ledger-engine/internal/model"
)

// schema is applied at startup. Transactions carry a BIGSERIAL sequence
// column so insertion order survives identical timestamps.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	cash          NUMERIC NOT NULL CHECK (cash >= 0),
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	seq       BIGSERIAL PRIMARY KEY,
	id        TEXT NOT NULL UNIQUE,
	user_id   TEXT NOT NULL REFERENCES users(id),
	symbol    TEXT NOT NULL,
	price     NUMERIC NOT NULL,
	shares    BIGINT NOT NULL,
	cost      NUMERIC NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions (user_id, seq);
`

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store and ensures the schema.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, cash, created_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5)`,
		u.ID, u.Username, u.PasswordHash, u.Cash.String(), u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUsernameTaken
		}
		return fmt.Errorf("create user %s: %w", u.Username, err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, `WHERE username = $1`, username)
}

func (s *PostgresStore) getUser(ctx context.Context, where, arg string) (*model.User, error) {
	var u model.User
	var cash string

	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, cash::TEXT, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &cash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", arg, err)
	}

	u.Cash, _ = decimal.NewFromString(cash)
	return &u, nil
}

// CommitTrade sets the new cash balance and appends the ledger row inside a
// single database transaction. A failure at any point rolls everything back.
func (s *PostgresStore) CommitTrade(ctx context.Context, userID string, newCash decimal.Decimal, t *model.Transaction) error {
	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin trade commit: %w", err)
	}
	defer dbTx.Rollback(ctx)

	tag, err := dbTx.Exec(ctx,
		`UPDATE users SET cash = $2::NUMERIC WHERE id = $1`,
		userID, newCash.String(),
	)
	if err != nil {
		return fmt.Errorf("update cash for %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	_, err = dbTx.Exec(ctx,
		`INSERT INTO transactions (id, user_id, symbol, price, shares, cost, timestamp)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5, $6::NUMERIC, $7)`,
		t.ID, t.UserID, t.Symbol, t.Price.String(), t.Shares, t.Cost.String(), t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit trade: %w", err)
	}
	return nil
}

func (s *PostgresStore) TransactionsByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, symbol, price::TEXT, shares, cost::TEXT, timestamp
		 FROM transactions WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", userID, err)
	}
	defer rows.Close()

	var entries []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var priceS, costS string

		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &priceS, &t.Shares, &costS, &t.Timestamp); err != nil {
			return nil, err
		}

		t.Price, _ = decimal.NewFromString(priceS)
		t.Cost, _ = decimal.NewFromString(costS)
		entries = append(entries, t)
	}
	return entries, rows.Err()
}
