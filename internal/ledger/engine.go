// Package ledger is the accounting core: it records buy/sell transactions
// against an append-only log, derives positions and valuations from that
// log, and enforces the invariants that keep cash and share counts
// consistent. Holdings are never stored — every read is a fold over the
// transaction history.
//
// All monetary values use shopspring/decimal, rounded to 2 decimal places
// at every boundary: per-trade cost, per-position value, cash, grand total.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brokersim/ledger-engine/internal/model"
	"github.com/brokersim/ledger-engine/internal/quote"
	"github.com/brokersim/ledger-engine/internal/store"
)

// Engine executes trades and derives portfolio state. Execution is
// serialized per user: two concurrent trades for the same user cannot both
// read a stale cash balance. Quote lookups happen before the user's lock is
// taken so network I/O is never performed inside the exclusive section.
type Engine struct {
	store  store.Store
	quotes quote.Service
	locks  *userLocks
}

// NewEngine creates a ledger engine on top of a store and a quote service.
func NewEngine(st store.Store, qs quote.Service) *Engine {
	return &Engine{
		store:  st,
		quotes: qs,
		locks:  newUserLocks(),
	}
}

// Quote resolves a symbol through the quote service, translating its
// failures into ledger error kinds. The price is rounded to cents so every
// downstream computation starts from a monetary value.
func (e *Engine) Quote(ctx context.Context, symbol string) (*model.Quote, error) {
	q, err := e.quotes.Lookup(ctx, symbol)
	switch {
	case errors.Is(err, quote.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, strings.ToUpper(symbol))
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	q.Price = q.Price.Round(2)
	return q, nil
}

// Buy purchases shares of symbol at the currently quoted price, debiting
// cash and appending one transaction atomically.
func (e *Engine) Buy(ctx context.Context, userID, symbol string, shares int64) (*model.Transaction, error) {
	if shares < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, shares)
	}

	q, err := e.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	cost := q.Price.Mul(decimal.NewFromInt(shares)).Round(2)

	mu := e.locks.forUser(userID)
	mu.Lock()
	defer mu.Unlock()

	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	cash := u.Cash.Round(2)

	if cost.GreaterThan(cash) {
		return nil, fmt.Errorf("%w: cost %s exceeds cash %s", ErrInsufficientFunds, cost, cash)
	}

	t := &model.Transaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symbol:    q.Symbol,
		Price:     q.Price,
		Shares:    shares,
		Cost:      cost,
		Timestamp: time.Now().UTC(),
	}

	if err := e.store.CommitTrade(ctx, userID, cash.Sub(cost).Round(2), t); err != nil {
		return nil, fmt.Errorf("commit buy: %w", err)
	}

	slog.Info("trade executed",
		"side", "buy",
		"user", userID,
		"symbol", q.Symbol,
		"shares", shares,
		"price", q.Price.String(),
		"cost", cost.String(),
	)
	return t, nil
}

// Sell disposes of shares of symbol at the currently quoted price, crediting
// cash and appending one transaction with negated shares. The transaction's
// cost column is recorded as zero for sells, matching the historical ledger
// convention; proceeds are reconstructed from shares and price.
func (e *Engine) Sell(ctx context.Context, userID, symbol string, shares int64) (*model.Transaction, error) {
	if shares < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, shares)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	// The symbol must appear in this user's transaction history at all
	// before a quote is even attempted.
	entries, err := e.store.TransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	totals := Aggregate(entries)
	held, ok := totals[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchPosition, symbol)
	}

	q, err := e.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	mu := e.locks.forUser(userID)
	mu.Lock()
	defer mu.Unlock()

	// Re-aggregate inside the lock: a concurrent sell may have already
	// consumed shares between the check above and here.
	entries, err = e.store.TransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	held = Aggregate(entries)[symbol]

	if held < shares {
		return nil, fmt.Errorf("%w: have %d, want to sell %d", ErrInsufficientShares, held, shares)
	}

	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}

	proceeds := q.Price.Mul(decimal.NewFromInt(shares)).Round(2)

	t := &model.Transaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symbol:    q.Symbol,
		Price:     q.Price,
		Shares:    -shares,
		Cost:      decimal.Zero,
		Timestamp: time.Now().UTC(),
	}

	if err := e.store.CommitTrade(ctx, userID, u.Cash.Round(2).Add(proceeds).Round(2), t); err != nil {
		return nil, fmt.Errorf("commit sell: %w", err)
	}

	slog.Info("trade executed",
		"side", "sell",
		"user", userID,
		"symbol", q.Symbol,
		"shares", shares,
		"price", q.Price.String(),
		"proceeds", proceeds.String(),
	)
	return t, nil
}

// Portfolio values the user's open positions at current quotes. Closed
// positions (net shares ≤ 0) produce no row. An empty open-position set —
// whether the user never traded or closed everything — returns
// ErrEmptyPortfolio rather than a zero-row portfolio.
func (e *Engine) Portfolio(ctx context.Context, userID string) (*model.Portfolio, error) {
	entries, err := e.store.TransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	totals := Aggregate(entries)
	symbols := OpenSymbols(totals)
	if len(symbols) == 0 {
		return nil, ErrEmptyPortfolio
	}

	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	cash := u.Cash.Round(2)

	positions := make([]model.Position, 0, len(symbols))
	total := decimal.Zero

	for _, sym := range symbols {
		q, err := e.Quote(ctx, sym)
		if err != nil {
			return nil, err
		}

		shares := totals[sym]
		value := q.Price.Mul(decimal.NewFromInt(shares)).Round(2)
		total = total.Add(value).Round(2)

		positions = append(positions, model.Position{
			Symbol:       q.Symbol,
			TotalShares:  shares,
			CurrentPrice: q.Price,
			TotalValue:   value,
		})
	}

	return &model.Portfolio{
		UserID:    userID,
		Positions: positions,
		Cash:      cash,
		Total:     total.Add(cash).Round(2),
	}, nil
}

// History returns the user's full transaction sequence in insertion order,
// unfiltered — closing and negative entries included.
func (e *Engine) History(ctx context.Context, userID string) ([]model.Transaction, error) {
	entries, err := e.store.TransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return entries, nil
}
