// Package model defines the core domain types shared across the ledger engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable record of a trade execution. Once appended,
// these are never modified or deleted; portfolio state is always a fold
// over a user's transaction sequence.
//
// Shares are signed: positive = buy, negative = sell. Cost is shares×price
// for buys and 0 for sells (the historical recording convention; cash-flow
// reconstruction for sells uses shares and price).
type Transaction struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Symbol    string          `json:"symbol" db:"symbol"` // uppercase ticker
	Price     decimal.Decimal `json:"price" db:"price"`   // per-share fill price
	Shares    int64           `json:"shares" db:"shares"`
	Cost      decimal.Decimal `json:"cost" db:"cost"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// User holds an account's identity and cash balance. The ledger only reads
// and writes Cash; everything else belongs to the identity subsystem.
type User struct {
	ID           string          `json:"id" db:"id"`
	Username     string          `json:"username" db:"username"`
	PasswordHash string          `json:"-" db:"password_hash"`
	Cash         decimal.Decimal `json:"cash" db:"cash"` // ≥ 0 post-commit
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Quote is a price resolved by the external quote service.
type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// Position is a user's derived holding in one symbol. Never stored:
// recomputed from the transaction log on every read.
type Position struct {
	Symbol       string          `json:"symbol"`
	TotalShares  int64           `json:"total_shares"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	TotalValue   decimal.Decimal `json:"total_value"` // shares×price, 2dp
}

// Portfolio is the full valuation of a user's open positions plus cash.
type Portfolio struct {
	UserID    string          `json:"user_id"`
	Positions []Position      `json:"positions"`
	Cash      decimal.Decimal `json:"cash"`
	Total     decimal.Decimal `json:"total"` // Σ position values + cash
}
