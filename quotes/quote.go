// Package quotes looks up current share prices for ticker symbols.
package quotes

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when the provider does not know the symbol.
	ErrNotFound = errors.New("ticker symbol not found")
	// ErrUnavailable marks failures worth retrying: transport errors,
	// upstream 5xx responses, rate limiting and timeouts.
	ErrUnavailable = errors.New("quote provider unavailable")
	// ErrRejected means the provider refused the request itself, e.g. an
	// invalid API key. Retrying does not help.
	ErrRejected = errors.New("quote provider rejected the request")
)

// Quote is a price snapshot for a symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// Provider looks up the current quote of a symbol.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (Quote, error)
}
