package trade_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/brokersim/ledger-engine/internal/auth"
	"github.com/brokersim/ledger-engine/internal/ledger"
	"github.com/brokersim/ledger-engine/internal/model"
	"github.com/brokersim/ledger-engine/internal/quote"
	"github.com/brokersim/ledger-engine/internal/store"
	"github.com/brokersim/ledger-engine/internal/trade"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// fakeQuotes is a scripted quote service keyed by uppercase symbol.
type fakeQuotes struct {
	prices map[string]decimal.Decimal
	err    error
}

func (f *fakeQuotes) Lookup(_ context.Context, symbol string) (*model.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	price, ok := f.prices[sym]
	if !ok {
		return nil, quote.ErrNotFound
	}
	return &model.Quote{Symbol: sym, Price: price}, nil
}

// newTestEnv builds the service on an in-memory store with scripted quotes
// and the same route layout as the server.
func newTestEnv(t *testing.T, prices map[string]decimal.Decimal) (*fakeQuotes, chi.Router) {
	t.Helper()
	ms := store.NewMemoryStore()
	fq := &fakeQuotes{prices: prices}
	engine := ledger.NewEngine(ms, fq)
	authSvc := auth.NewService(ms, []byte("test-secret"), d(10000))
	svc := trade.NewService(engine, authSvc, nil)

	r := chi.NewRouter()
	r.Post("/api/v1/register", svc.Register)
	r.Post("/api/v1/login", svc.Login)
	r.Group(func(r chi.Router) {
		r.Use(authSvc.Middleware)
		r.Get("/api/v1/quote/{symbol}", svc.GetQuote)
		r.Post("/api/v1/buy", svc.Buy)
		r.Post("/api/v1/sell", svc.Sell)
		r.Get("/api/v1/portfolio", svc.GetPortfolio)
		r.Get("/api/v1/history", svc.GetHistory)
	})
	return fq, r
}

func doJSON(t *testing.T, router chi.Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// registerAndLogin creates an account through the API and returns its token.
func registerAndLogin(t *testing.T, router chi.Router, username string) string {
	t.Helper()
	creds := trade.CredentialsRequest{Username: username, Password: "hunter2"}

	if w := doJSON(t, router, "POST", "/api/v1/register", "", creds); w.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", w.Code, w.Body.String())
	}

	w := doJSON(t, router, "POST", "/api/v1/login", "", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["token"] == "" {
		t.Fatal("expected non-empty token")
	}
	return resp["token"]
}

// --- Identity ---

func TestRegister_DuplicateUsernameConflicts(t *testing.T) {
	_, router := newTestEnv(t, nil)
	creds := trade.CredentialsRequest{Username: "alice", Password: "pw"}

	if w := doJSON(t, router, "POST", "/api/v1/register", "", creds); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if w := doJSON(t, router, "POST", "/api/v1/register", "", creds); w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate username, got %d", w.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	_, router := newTestEnv(t, nil)
	doJSON(t, router, "POST", "/api/v1/register", "", trade.CredentialsRequest{Username: "alice", Password: "pw"})

	w := doJSON(t, router, "POST", "/api/v1/login", "", trade.CredentialsRequest{Username: "alice", Password: "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestLedgerRoutes_RequireAuth(t *testing.T) {
	_, router := newTestEnv(t, nil)

	for _, route := range []struct{ method, path string }{
		{"GET", "/api/v1/quote/AAPL"},
		{"POST", "/api/v1/buy"},
		{"POST", "/api/v1/sell"},
		{"GET", "/api/v1/portfolio"},
		{"GET", "/api/v1/history"},
	} {
		w := doJSON(t, router, route.method, route.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401 without token, got %d", route.method, route.path, w.Code)
		}
	}
}

// --- Quote ---

func TestGetQuote(t *testing.T) {
	_, router := newTestEnv(t, map[string]decimal.Decimal{"AAPL": d(150.28)})
	token := registerAndLogin(t, router, "alice")

	w := doJSON(t, router, "GET", "/api/v1/quote/aapl", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var q model.Quote
	json.Unmarshal(w.Body.Bytes(), &q)
	if q.Symbol != "AAPL" {
		t.Errorf("expected symbol AAPL, got %s", q.Symbol)
	}
	if !q.Price.Equal(decimal.RequireFromString("150.28")) {
		t.Errorf("expected price 150.28, got %s", q.Price)
	}
}

func TestGetQuote_UnknownSymbol(t *testing.T) {
	_, router := newTestEnv(t, nil)
	token := registerAndLogin(t, router, "alice")

	if w := doJSON(t, router, "GET", "/api/v1/quote/NOPE", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestGetQuote_ServiceDown(t *testing.T) {
	fq, router := newTestEnv(t, map[string]decimal.Decimal{"AAPL": d(150)})
	token := registerAndLogin(t, router, "alice")
	fq.err = quote.ErrUnavailable

	if w := doJSON(t, router, "GET", "/api/v1/quote/AAPL", token, nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

// --- Buy / Sell ---

func TestBuy_HappyPath(t *testing.T) {
	_, router := newTestEnv(t, map[string]decimal.Decimal{"AAPL": d(150)})
	token := registerAndLogin(t, router, "alice")

	w := doJSON(t, router, "POST", "/api/v1/buy", token, trade.TradeRequest{Symbol: "AAPL", Shares: 10})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp trade.TradeResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.TransactionID == "" {
		t.Error("expected non-empty transaction_id")
	}
	if resp.Side != "buy" {
		t.Errorf("expected side buy, got %s", resp.Side)
	}
	if !resp.Amount.Equal(d(1500)) {
		t.Errorf("expected amount 1500, got %s", resp.Amount)
	}
}

func TestBuy_StatusMapping(t *testing.T) {
	_, router := newTestEnv(t, map[string]decimal.Decimal{"AAPL": d(150), "BIG": d(99999)})
	token := registerAndLogin(t, router, "alice")

	cases := []struct {
		name string
		req  trade.TradeRequest
		want int
	}{
		{"invalid quantity", trade.TradeRequest{Symbol: "AAPL", Shares: 0}, http.StatusBadRequest},
		{"unknown symbol", trade.TradeRequest{Symbol: "NOPE", Shares: 1}, http.StatusBadRequest},
		{"insufficient funds", trade.TradeRequest{Symbol: "BIG", Shares: 1}, http.StatusConflict},
	}

	for _, tc := range cases {
		if w := doJSON(t, router, "POST", "/api/v1/buy", token, tc.req); w.Code != tc.want {
			t.Errorf("%s: expected %d, got %d: %s", tc.name, tc.want, w.Code, w.Body.String())
		}
	}
}

func TestSell_StatusMapping(t *testing.T) {
	_, router := newTestEnv(t, map[string]decimal.Decimal{"AAPL": d(150)})
	token := registerAndLogin(t, router, "alice")

	// No history at all for this symbol.
	if w := doJSON(t, router, "POST", "/api/v1/sell", token, trade.TradeRequest{Symbol: "AAPL", Shares: 1}); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for no such position, got %d", w.Code)
	}

	doJSON(t, router, "POST", "/api/v1/buy", token, trade.TradeRequest{Symbol: "AAPL", Shares: 10})

	// More than held.
	if w := doJSON(t, router, "POST", "/api/v1/sell", token, trade.TradeRequest{Symbol: "AAPL", Shares: 15}); w.Code != http.StatusConflict {
		t.Errorf("expected 409 for insufficient shares, got %d", w.Code)
	}

	// Valid sell reports proceeds.
	w := doJSON(t, router, "POST", "/api/v1/sell", token, trade.TradeRequest{Symbol: "AAPL", Shares: 4})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp trade.TradeResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Amount.Equal(d(600)) {
		t.Errorf("expected proceeds 600, got %s", resp.Amount)
	}
}

// --- Portfolio / History ---

func TestPortfolio_Flow(t *testing.T) {
	_, router := newTestEnv(t, map[string]decimal.Decimal{"AAPL": d(150)})
	token := registerAndLogin(t, router, "alice")

	// Empty portfolio before any trade.
	if w := doJSON(t, router, "GET", "/api/v1/portfolio", token, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for empty portfolio, got %d", w.Code)
	}

	doJSON(t, router, "POST", "/api/v1/buy", token, trade.TradeRequest{Symbol: "AAPL", Shares: 10})

	w := doJSON(t, router, "GET", "/api/v1/portfolio", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var p model.Portfolio
	json.Unmarshal(w.Body.Bytes(), &p)

	if len(p.Positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(p.Positions))
	}
	if p.Positions[0].Symbol != "AAPL" || p.Positions[0].TotalShares != 10 {
		t.Errorf("unexpected position: %+v", p.Positions[0])
	}
	if !p.Cash.Equal(d(8500)) {
		t.Errorf("expected cash 8500, got %s", p.Cash)
	}
	if !p.Total.Equal(d(10000)) {
		t.Errorf("expected total 10000, got %s", p.Total)
	}
}

func TestHistory_IncludesSellRows(t *testing.T) {
	_, router := newTestEnv(t, map[string]decimal.Decimal{"AAPL": d(150)})
	token := registerAndLogin(t, router, "alice")

	doJSON(t, router, "POST", "/api/v1/buy", token, trade.TradeRequest{Symbol: "AAPL", Shares: 10})
	doJSON(t, router, "POST", "/api/v1/sell", token, trade.TradeRequest{Symbol: "AAPL", Shares: 10})

	w := doJSON(t, router, "GET", "/api/v1/history", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var entries []model.Transaction
	json.Unmarshal(w.Body.Bytes(), &entries)

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].Shares != -10 {
		t.Errorf("expected closing entry with shares -10, got %d", entries[1].Shares)
	}
	if !entries[1].Cost.Equal(decimal.Zero) {
		t.Errorf("sell entry should record cost 0, got %s", entries[1].Cost)
	}
}

func TestHistory_EmptyIsOK(t *testing.T) {
	_, router := newTestEnv(t, nil)
	token := registerAndLogin(t, router, "alice")

	w := doJSON(t, router, "GET", "/api/v1/history", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("expected empty JSON array, got %s", body)
	}
}

func TestTraders_AreIsolated(t *testing.T) {
	_, router := newTestEnv(t, map[string]decimal.Decimal{"AAPL": d(150)})
	alice := registerAndLogin(t, router, "alice")
	bob := registerAndLogin(t, router, "bob")

	doJSON(t, router, "POST", "/api/v1/buy", alice, trade.TradeRequest{Symbol: "AAPL", Shares: 10})

	// Bob holds nothing and cannot see or sell Alice's shares.
	if w := doJSON(t, router, "GET", "/api/v1/portfolio", bob, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for bob's empty portfolio, got %d", w.Code)
	}
	if w := doJSON(t, router, "POST", "/api/v1/sell", bob, trade.TradeRequest{Symbol: "AAPL", Shares: 1}); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for bob selling alice's position, got %d", w.Code)
	}
}
