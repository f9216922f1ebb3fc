package ledger_test

import (
	"reflect"
	"testing"

	"github.com/brokersim/ledger-engine/internal/ledger"
	"github.com/brokersim/ledger-engine/internal/model"
)

func tx(symbol string, shares int64) model.Transaction {
	return model.Transaction{Symbol: symbol, Shares: shares}
}

func TestAggregate_SumsPerSymbol(t *testing.T) {
	entries := []model.Transaction{
		tx("AAPL", 10),
		tx("NFLX", 3),
		tx("AAPL", 5),
		tx("AAPL", -8),
	}

	totals := ledger.Aggregate(entries)

	if totals["AAPL"] != 7 {
		t.Errorf("expected AAPL=7, got %d", totals["AAPL"])
	}
	if totals["NFLX"] != 3 {
		t.Errorf("expected NFLX=3, got %d", totals["NFLX"])
	}
}

func TestAggregate_RetainsClosedSymbols(t *testing.T) {
	entries := []model.Transaction{
		tx("AAPL", 10),
		tx("AAPL", -10),
	}

	totals := ledger.Aggregate(entries)

	net, ok := totals["AAPL"]
	if !ok {
		t.Fatal("closed symbol should remain in the raw aggregate")
	}
	if net != 0 {
		t.Errorf("expected net 0, got %d", net)
	}
}

func TestAggregate_Empty(t *testing.T) {
	if totals := ledger.Aggregate(nil); len(totals) != 0 {
		t.Errorf("expected empty aggregate, got %v", totals)
	}
}

func TestOpenSymbols_FiltersAndSorts(t *testing.T) {
	totals := map[string]int64{
		"NFLX": 3,
		"AAPL": 7,
		"TSLA": 0,
		"GME":  -2,
	}

	got := ledger.OpenSymbols(totals)
	want := []string{"AAPL", "NFLX"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
