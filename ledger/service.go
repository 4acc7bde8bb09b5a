// Package ledger keeps each account's cash balance, share holdings and
// transaction log consistent as trades happen.
//
// The Service holds no per-user state: every call names the account it
// acts on, and all persistence goes through the injected Store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"stocks-simulator/models"
	"stocks-simulator/quotes"
)

const defaultQuoteTimeout = 5 * time.Second

type Service struct {
	store        Store
	quotes       QuoteProvider
	quoteCache   QuoteProvider
	logger       *logrus.Entry
	now          func() time.Time
	hashCost     int
	quoteTimeout time.Duration
}

type Option func(*Service)

func WithLogger(l *logrus.Entry) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHashCost sets the bcrypt cost used for new passwords.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// WithQuoteTimeout bounds every quote lookup made by the service.
func WithQuoteTimeout(d time.Duration) Option {
	return func(s *Service) { s.quoteTimeout = d }
}

// WithQuoteCache sets the provider used by Quote. Trades and portfolio
// valuation always use the uncached provider.
func WithQuoteCache(p QuoteProvider) Option {
	return func(s *Service) { s.quoteCache = p }
}

func NewService(store Store, provider QuoteProvider, opts ...Option) *Service {
	s := &Service{
		store:        store,
		quotes:       provider,
		logger:       logrus.NewEntry(logrus.StandardLogger()),
		now:          time.Now,
		hashCost:     bcrypt.DefaultCost,
		quoteTimeout: defaultQuoteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.quoteCache == nil {
		s.quoteCache = s.quotes
	}
	return s
}

// Account returns the account with the given id.
func (s *Service) Account(ctx context.Context, accountID uint) (models.User, error) {
	var user models.User
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		user, err = getAccount(tx, accountID)
		return err
	})
	return user, err
}

// Quote looks up the current quote of symbol.
func (s *Service) Quote(ctx context.Context, symbol string) (quotes.Quote, error) {
	if isBlank(symbol) {
		return quotes.Quote{}, userError(ErrValidation, "ticker symbol cannot be blank")
	}
	return s.lookup(ctx, s.quoteCache, symbol)
}

// History lists the account's transactions, newest first.
func (s *Service) History(ctx context.Context, accountID uint) ([]models.Transaction, error) {
	var records []models.Transaction
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := getAccount(tx, accountID); err != nil {
			return err
		}
		var err error
		records, err = tx.Transactions(accountID)
		if err != nil {
			return fmt.Errorf("listing transactions: %w", err)
		}
		return nil
	})
	return records, err
}

func (s *Service) lookup(ctx context.Context, p QuoteProvider, symbol string) (quotes.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, s.quoteTimeout)
	defer cancel()

	q, err := p.Lookup(ctx, symbol)
	switch {
	case err == nil:
		return q, nil
	case errors.Is(err, quotes.ErrNotFound):
		return quotes.Quote{}, userError(ErrNotFound, "ticker symbol not found")
	case errors.Is(err, quotes.ErrUnavailable):
		return quotes.Quote{}, fmt.Errorf("looking up %s: %w", symbol, err)
	case errors.Is(err, context.DeadlineExceeded):
		return quotes.Quote{}, fmt.Errorf("looking up %s: %w: %w", symbol, quotes.ErrUnavailable, err)
	}
	return quotes.Quote{}, fmt.Errorf("looking up %s: %w", symbol, err)
}

func getAccount(tx Tx, accountID uint) (models.User, error) {
	user, err := tx.GetUser(accountID)
	return user, accountError(accountID, err)
}

func lockAccount(tx Tx, accountID uint) (models.User, error) {
	user, err := tx.LockUser(accountID)
	return user, accountError(accountID, err)
}

func accountError(accountID uint, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return userError(ErrNotFound, "account %d not found", accountID)
	}
	return fmt.Errorf("loading account %d: %w", accountID, err)
}

// logFailure logs rejections at debug level and everything else as an error.
func logFailure(l *logrus.Entry, err error) {
	var ie *IntegrityError
	switch {
	case errors.As(err, &ie):
		l.WithFields(logrus.Fields{
			"integrity_account": ie.AccountID,
			"integrity_symbol":  ie.Symbol,
			"integrity_rows":    ie.Rows,
		}).Errorf("Ledger integrity fault. Rolled back: %v", err)
	case IsUserError(err):
		l.Debugf("Rejected: %v", err)
	default:
		l.Errorf("Failed: %v", err)
	}
}
