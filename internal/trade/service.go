// Package trade provides the HTTP surface of the ledger engine: account
// registration and login, quote lookup, buy/sell execution, and the
// portfolio and history views.
package trade

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/brokersim/ledger-engine/internal/auth"
	"github.com/brokersim/ledger-engine/internal/ledger"
	"github.com/brokersim/ledger-engine/internal/metrics"
	"github.com/brokersim/ledger-engine/internal/model"
	"github.com/brokersim/ledger-engine/internal/store"
)

// Service wires the ledger engine and identity service to HTTP handlers.
// Handlers extract the authenticated user ID and pass it to the engine as
// an explicit argument.
type Service struct {
	engine *ledger.Engine
	auth   *auth.Service
	feed   *Feed // optional trade tape; nil disables broadcasting
}

// NewService creates the HTTP service. Pass nil for feed if the trade tape
// is not needed.
func NewService(engine *ledger.Engine, authSvc *auth.Service, feed *Feed) *Service {
	return &Service{engine: engine, auth: authSvc, feed: feed}
}

// --- Request/Response types ---

// CredentialsRequest is the JSON body for register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TradeRequest is the JSON body for POST /buy and POST /sell.
type TradeRequest struct {
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}

// TradeResponse is returned from a committed buy or sell.
type TradeResponse struct {
	TransactionID string          `json:"transaction_id"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Shares        int64           `json:"shares"`
	Price         decimal.Decimal `json:"price"`
	Amount        decimal.Decimal `json:"amount"` // cost for buys, proceeds for sells
}

// --- Identity handlers ---

// Register handles POST /api/v1/register.
func (s *Service) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := s.auth.Register(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, store.ErrUsernameTaken):
		writeError(w, "username already taken", http.StatusConflict)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		writeError(w, "registration failed", http.StatusInternalServerError)
		return
	}

	slog.Info("user registered", "user", u.ID, "username", u.Username)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": u.ID, "username": u.Username})
}

// Login handles POST /api/v1/login.
func (s *Service) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, "invalid username or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		writeError(w, "login failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// --- Ledger handlers ---

// GetQuote handles GET /api/v1/quote/{symbol}.
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		metrics.QuoteLookups.WithLabelValues("error").Inc()
		writeLedgerError(w, err)
		return
	}
	metrics.QuoteLookups.WithLabelValues("ok").Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(q)
}

// Buy handles POST /api/v1/buy.
func (s *Service) Buy(w http.ResponseWriter, r *http.Request) {
	s.executeTrade(w, r, "buy", s.engine.Buy)
}

// Sell handles POST /api/v1/sell.
func (s *Service) Sell(w http.ResponseWriter, r *http.Request) {
	s.executeTrade(w, r, "sell", s.engine.Sell)
}

func (s *Service) executeTrade(w http.ResponseWriter, r *http.Request, side string,
	exec func(ctx context.Context, userID, symbol string, shares int64) (*model.Transaction, error)) {

	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	t, err := exec(r.Context(), userID, req.Symbol, req.Shares)
	if err != nil {
		metrics.TradeRejections.WithLabelValues(rejectionReason(err)).Inc()
		writeLedgerError(w, err)
		return
	}
	metrics.TradesTotal.WithLabelValues(side).Inc()
	metrics.TradeLatency.WithLabelValues(side).Observe(time.Since(start).Seconds())

	amount := t.Cost
	if side == "sell" {
		// Sell rows record cost=0; report the proceeds instead.
		amount = t.Price.Mul(decimal.NewFromInt(req.Shares)).Round(2)
	}

	if s.feed != nil {
		s.feed.Broadcast(TapeMessage{
			Type:   "trade_executed",
			Symbol: t.Symbol,
			Side:   side,
			Shares: req.Shares,
			Price:  t.Price.String(),
		})
	}

	resp := TradeResponse{
		TransactionID: t.ID,
		Symbol:        t.Symbol,
		Side:          side,
		Shares:        req.Shares,
		Price:         t.Price,
		Amount:        amount,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetPortfolio handles GET /api/v1/portfolio.
func (s *Service) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	p, err := s.engine.Portfolio(r.Context(), userID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// GetHistory handles GET /api/v1/history. The list is unfiltered: closing
// and negative entries included, in insertion order.
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	entries, err := s.engine.History(r.Context(), userID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if entries == nil {
		entries = []model.Transaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// --- Error mapping ---

// writeLedgerError maps ledger error kinds to HTTP statuses. Everything not
// in the taxonomy is a persistence failure and surfaces as a 500 without
// leaking internals.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrUnknownSymbol):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrNoSuchPosition):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrEmptyPortfolio):
		writeError(w, "no open positions, buy something first", http.StatusNotFound)
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientShares):
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ledger.ErrQuoteUnavailable):
		writeError(w, "quote service unavailable", http.StatusServiceUnavailable)
	default:
		slog.Error("trade request failed", "err", err)
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ledger.ErrUnknownSymbol):
		return "unknown_symbol"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ledger.ErrInsufficientShares):
		return "insufficient_shares"
	case errors.Is(err, ledger.ErrNoSuchPosition):
		return "no_such_position"
	case errors.Is(err, ledger.ErrQuoteUnavailable):
		return "quote_unavailable"
	default:
		return "persistence"
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
