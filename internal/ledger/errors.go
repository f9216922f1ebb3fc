package ledger

import "errors"

// Every trade or valuation failure is one of these recoverable, user-facing
// conditions, surfaced verbatim to the caller. Persistence failures are
// wrapped store errors and carry their cause via %w.
var (
	// ErrUnknownSymbol means the quote service could not resolve a ticker.
	ErrUnknownSymbol = errors.New("ledger: unknown symbol")

	// ErrInvalidQuantity means the requested share count is less than one.
	ErrInvalidQuantity = errors.New("ledger: invalid share quantity")

	// ErrInsufficientFunds means a buy's cost exceeds available cash.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInsufficientShares means a sell exceeds the held share count.
	ErrInsufficientShares = errors.New("ledger: insufficient shares")

	// ErrNoSuchPosition means a sell named a symbol with no transaction
	// history for this user.
	ErrNoSuchPosition = errors.New("ledger: no such position")

	// ErrEmptyPortfolio means a valuation found no open positions.
	ErrEmptyPortfolio = errors.New("ledger: empty portfolio")

	// ErrQuoteUnavailable means the quote dependency timed out or errored.
	ErrQuoteUnavailable = errors.New("ledger: quote service unavailable")
)
