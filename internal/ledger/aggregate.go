package ledger

import (
	"sort"

	"github.com/brokersim/ledger-engine/internal/model"
)

// Aggregate folds a user's transaction sequence into net share counts per
// symbol. Pure function of the log; the sum is commutative so ordering does
// not affect the result. Symbols with a net of zero or negative stay in the
// map — callers that want only open positions filter on > 0.
func Aggregate(entries []model.Transaction) map[string]int64 {
	totals := make(map[string]int64)
	for _, t := range entries {
		totals[t.Symbol] += t.Shares
	}
	return totals
}

// OpenSymbols returns the symbols with net shares > 0, sorted ascending so
// derived views read deterministically.
func OpenSymbols(totals map[string]int64) []string {
	var symbols []string
	for sym, shares := range totals {
		if shares > 0 {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)
	return symbols
}
