package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"stocks-simulator/models"
	"stocks-simulator/quotes"
)

// QuoteProvider resolves a ticker symbol to its current quote. It returns
// quotes.ErrNotFound for unknown symbols and errors wrapping
// quotes.ErrUnavailable for failures worth retrying.
type QuoteProvider interface {
	Lookup(ctx context.Context, symbol string) (quotes.Quote, error)
}

// Store persists accounts, portfolio entries and transaction records.
//
// WithinTx runs fn as a single unit of work: either every change made
// through tx is committed, or none is. Implementations must isolate
// concurrent units of work touching the same account.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the view of the store inside a unit of work. Lookups of a missing
// account return an error wrapping ErrNotFound; inserting a username that
// already exists returns an error wrapping ErrConflict.
type Tx interface {
	CreateUser(u *models.User) error
	UsersByUsername(username string) ([]models.User, error)
	GetUser(id uint) (models.User, error)
	// LockUser loads the account and holds a write lock on it until the
	// unit of work ends.
	LockUser(id uint) (models.User, error)
	SetCash(id uint, cash decimal.Decimal) error

	// Holdings lists an account's portfolio ordered by symbol.
	Holdings(userID uint) ([]models.Holding, error)
	// HoldingsBySymbol returns every row for the pair so callers can
	// detect a broken uniqueness invariant.
	HoldingsBySymbol(userID uint, symbol string) ([]models.Holding, error)
	CreateHolding(h *models.Holding) error
	UpdateHolding(h *models.Holding) error
	DeleteHolding(id uint) error

	AppendTransaction(t *models.Transaction) error
	// Transactions lists an account's records, newest first.
	Transactions(userID uint) ([]models.Transaction, error)

	RecordPrices(prices []models.StockPrice) error
}
