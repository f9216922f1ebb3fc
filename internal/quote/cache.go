package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/brokersim/ledger-engine/internal/model"
)

// Cached wraps a Service with a Redis read-through price cache. Cache
// failures are treated as misses: a dead Redis never fails a lookup that
// the upstream service can still answer.
type Cached struct {
	inner Service
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCached creates a cached wrapper around a quote service.
func NewCached(inner Service, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *Cached) Lookup(ctx context.Context, symbol string) (*model.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	// Try cache.
	if cached, err := c.rdb.Get(ctx, priceKey(symbol)).Result(); err == nil {
		if price, perr := decimal.NewFromString(cached); perr == nil {
			return &model.Quote{Symbol: symbol, Price: price}, nil
		}
	}

	// Cache miss: ask the upstream service.
	q, err := c.inner.Lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}

	c.rdb.Set(ctx, priceKey(q.Symbol), q.Price.String(), c.ttl)
	return q, nil
}

var _ Service = (*Cached)(nil)

func priceKey(symbol string) string { return fmt.Sprintf("stock:%s:price", symbol) }
