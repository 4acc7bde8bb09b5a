package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stocks-simulator/ledger"
	"stocks-simulator/models"
)

const (
	defaultRetries   = 3
	priceBatchSize   = 100
	retryBaseBackoff = 20 * time.Millisecond
)

// PostgreSQL codes for transactions aborted by concurrency control.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Store is a ledger.Store backed by a gorm connection.
type Store struct {
	db        *gorm.DB
	isolation sql.IsolationLevel
	retries   int
	logger    *logrus.Entry
}

type StoreOption func(*Store)

// WithIsolation sets the isolation level of every unit of work.
func WithIsolation(level sql.IsolationLevel) StoreOption {
	return func(s *Store) { s.isolation = level }
}

// WithRetries sets how many times a unit of work aborted by a
// serialization failure or deadlock is attempted in total.
func WithRetries(n int) StoreOption {
	return func(s *Store) { s.retries = n }
}

func WithStoreLogger(l *logrus.Entry) StoreOption {
	return func(s *Store) { s.logger = l }
}

func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:        db,
		isolation: sql.LevelSerializable,
		retries:   defaultRetries,
		logger:    logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retries < 1 {
		s.retries = 1
	}
	return s
}

// WithinTx runs fn inside a database transaction and retries it when the
// database aborts it to resolve a conflict with a concurrent transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	l := s.logger.WithFields(logrus.Fields{
		"method": "WithinTx",
	})

	var err error
	for attempt := 1; attempt <= s.retries; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&gormTx{db: tx})
		}, &sql.TxOptions{Isolation: s.isolation})
		if err == nil || !retryable(err) {
			return err
		}

		l.Warnf("Transaction aborted by a concurrent update (attempt %d/%d): %v", attempt, s.retries, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBaseBackoff):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", s.retries, err)
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}

// gormTx is the ledger.Tx of a single gorm transaction.
type gormTx struct {
	db *gorm.DB
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", ledger.ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", ledger.ErrConflict, err)
	}
	return err
}

func (t *gormTx) CreateUser(u *models.User) error {
	return translate(t.db.Create(u).Error)
}

func (t *gormTx) UsersByUsername(username string) ([]models.User, error) {
	var users []models.User
	err := t.db.Where("username = ?", username).Find(&users).Error
	return users, err
}

func (t *gormTx) GetUser(id uint) (models.User, error) {
	var user models.User
	err := t.db.First(&user, id).Error
	return user, translate(err)
}

func (t *gormTx) LockUser(id uint) (models.User, error) {
	var user models.User
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error
	return user, translate(err)
}

func (t *gormTx) SetCash(id uint, cash decimal.Decimal) error {
	res := t.db.Model(&models.User{}).Where("id = ?", id).Update("cash", cash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, ledger.ErrNotFound)
	}
	return nil
}

func (t *gormTx) Holdings(userID uint) ([]models.Holding, error) {
	var holdings []models.Holding
	err := t.db.Where("user_id = ?", userID).Order("symbol").Find(&holdings).Error
	return holdings, err
}

func (t *gormTx) HoldingsBySymbol(userID uint, symbol string) ([]models.Holding, error) {
	var holdings []models.Holding
	err := t.db.Where("user_id = ? AND symbol = ?", userID, symbol).Find(&holdings).Error
	return holdings, err
}

func (t *gormTx) CreateHolding(h *models.Holding) error {
	return translate(t.db.Create(h).Error)
}

func (t *gormTx) UpdateHolding(h *models.Holding) error {
	return t.db.Model(h).Select("company_name", "shares", "price", "total_value", "updated_at").Updates(h).Error
}

func (t *gormTx) DeleteHolding(id uint) error {
	return t.db.Delete(&models.Holding{}, id).Error
}

func (t *gormTx) AppendTransaction(r *models.Transaction) error {
	return t.db.Create(r).Error
}

func (t *gormTx) Transactions(userID uint) ([]models.Transaction, error) {
	var records []models.Transaction
	err := t.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&records).Error
	return records, err
}

func (t *gormTx) RecordPrices(prices []models.StockPrice) error {
	return CreateInBatches(t.db, prices, priceBatchSize)
}
