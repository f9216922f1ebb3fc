// Package quote is the client side of the external quote service. The
// ledger treats it as a black box: given a ticker it yields a current price
// and canonical symbol, or signals that the symbol is unknown. Caching and
// retry policy, if any, live here — never in the ledger.
package quote

import (
	"context"
	"errors"

	"github.com/brokersim/ledger-engine/internal/model"
)

var (
	// ErrNotFound is returned when the service cannot resolve a symbol.
	ErrNotFound = errors.New("quote: symbol not found")

	// ErrUnavailable is returned when the service times out or errors.
	ErrUnavailable = errors.New("quote: service unavailable")
)

// Service resolves ticker symbols to current prices.
type Service interface {
	Lookup(ctx context.Context, symbol string) (*model.Quote, error)
}
