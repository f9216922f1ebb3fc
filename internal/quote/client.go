package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brokersim/ledger-engine/internal/model"
)

// DefaultTimeout bounds a single lookup. A quote that never returns fails
// with ErrUnavailable rather than blocking the trade indefinitely.
const DefaultTimeout = 5 * time.Second

// globalQuoteResponse mirrors the provider's GLOBAL_QUOTE JSON envelope.
type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
}

// Client looks up quotes over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a quote client for the given API base URL.
// A non-positive timeout falls back to DefaultTimeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Lookup resolves a ticker to its current price. The returned symbol is
// canonical (uppercase, as reported by the provider).
func (c *Client) Lookup(ctx context.Context, symbol string) (*model.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrNotFound
	}

	q := url.Values{}
	q.Set("function", "GLOBAL_QUOTE")
	q.Set("symbol", symbol)
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body globalQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}

	// The provider signals an unknown symbol with an empty quote object.
	if body.GlobalQuote.Price == "" {
		return nil, ErrNotFound
	}

	price, err := decimal.NewFromString(body.GlobalQuote.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: bad price %q", ErrUnavailable, body.GlobalQuote.Price)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: negative price %s", ErrUnavailable, price)
	}

	canonical := strings.ToUpper(body.GlobalQuote.Symbol)
	if canonical == "" {
		canonical = symbol
	}

	return &model.Quote{Symbol: canonical, Price: price}, nil
}

var _ Service = (*Client)(nil)
