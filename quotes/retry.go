package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Retrying retries lookups that failed with ErrUnavailable, waiting
// attempt*backoff between tries. Other errors are returned at once.
type Retrying struct {
	next     Provider
	attempts int
	backoff  time.Duration
	logger   *logrus.Entry
}

func NewRetrying(next Provider, attempts int, backoff time.Duration, logger *logrus.Entry) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{next: next, attempts: attempts, backoff: backoff, logger: logger}
}

func (r *Retrying) Lookup(ctx context.Context, symbol string) (Quote, error) {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Quote{}, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
			case <-time.After(time.Duration(attempt) * r.backoff):
			}
		}

		q, err := r.next.Lookup(ctx, symbol)
		if err == nil || !errors.Is(err, ErrUnavailable) {
			return q, err
		}
		lastErr = err

		r.logger.WithFields(logrus.Fields{
			"method":        "Retrying.Lookup",
			"param_symbol":  symbol,
			"param_attempt": attempt + 1,
		}).Warnf("Quote lookup failed: %v", err)
	}
	return Quote{}, lastErr
}
