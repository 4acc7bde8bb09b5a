package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Cached keeps quotes in Redis for ttl. Cache failures are logged and the
// lookup falls through to the wrapped provider.
type Cached struct {
	next   Provider
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

func NewCached(next Provider, rdb *redis.Client, ttl time.Duration, logger *logrus.Entry) *Cached {
	return &Cached{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(symbol string) string {
	return fmt.Sprintf("stock:%s:quote", strings.ToUpper(strings.TrimSpace(symbol)))
}

func (c *Cached) Lookup(ctx context.Context, symbol string) (Quote, error) {
	l := c.logger.WithFields(logrus.Fields{
		"method":       "Cached.Lookup",
		"param_symbol": symbol,
	})

	key := cacheKey(symbol)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var q Quote
		if err := json.Unmarshal(raw, &q); err == nil {
			l.Debugf("Cache hit")
			return q, nil
		}
		l.Warnf("Dropping undecodable cache entry")
	case err != redis.Nil:
		l.Warnf("Cache read failed: %v", err)
	}

	q, err := c.next.Lookup(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}

	if raw, err := json.Marshal(q); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			l.Warnf("Cache write failed: %v", err)
		}
	}
	return q, nil
}
