package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"stocks-simulator/models"
	"stocks-simulator/quotes"
)

var errDiskFull = errors.New("disk full")

// memStore is a Store kept in memory. A unit of work holds the store lock
// for its whole duration and restores a snapshot when it fails.
type memStore struct {
	mu       sync.Mutex
	nextID   uint
	users    map[uint]models.User
	holdings map[uint]models.Holding
	records  []models.Transaction
	prices   []models.StockPrice

	// failOn makes the named Tx method fail with errDiskFull.
	failOn string
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uint]models.User),
		holdings: make(map[uint]models.Holding),
	}
}

type memSnapshot struct {
	nextID   uint
	users    map[uint]models.User
	holdings map[uint]models.Holding
	records  []models.Transaction
	prices   []models.StockPrice
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		nextID:   m.nextID,
		users:    make(map[uint]models.User, len(m.users)),
		holdings: make(map[uint]models.Holding, len(m.holdings)),
		records:  append([]models.Transaction(nil), m.records...),
		prices:   append([]models.StockPrice(nil), m.prices...),
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	for k, v := range m.holdings {
		s.holdings[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.nextID, m.users, m.holdings, m.records, m.prices = s.nextID, s.users, s.holdings, s.records, s.prices
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&memTx{m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// state returns copies of the stored rows for assertions.
func (m *memStore) state(userID uint) (models.User, []models.Holding, []models.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var holdings []models.Holding
	for _, h := range m.holdings {
		if h.UserID == userID {
			holdings = append(holdings, h)
		}
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })

	var records []models.Transaction
	for _, r := range m.records {
		if r.UserID == userID {
			records = append(records, r)
		}
	}
	return m.users[userID], holdings, records
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

type memTx struct {
	m *memStore
}

func (t *memTx) fail(method string) error {
	if t.m.failOn == method {
		return fmt.Errorf("%s: %w", method, errDiskFull)
	}
	return nil
}

func (t *memTx) CreateUser(u *models.User) error {
	if err := t.fail("CreateUser"); err != nil {
		return err
	}
	for _, existing := range t.m.users {
		if existing.Username == u.Username {
			return fmt.Errorf("%w: duplicate username", ErrConflict)
		}
	}
	u.ID = t.m.id()
	t.m.users[u.ID] = *u
	return nil
}

func (t *memTx) UsersByUsername(username string) ([]models.User, error) {
	var out []models.User
	for _, u := range t.m.users {
		if u.Username == username {
			out = append(out, u)
		}
	}
	return out, t.fail("UsersByUsername")
}

func (t *memTx) GetUser(id uint) (models.User, error) {
	u, ok := t.m.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (t *memTx) LockUser(id uint) (models.User, error) {
	return t.GetUser(id)
}

func (t *memTx) SetCash(id uint, cash decimal.Decimal) error {
	if err := t.fail("SetCash"); err != nil {
		return err
	}
	u := t.m.users[id]
	u.Cash = cash
	t.m.users[id] = u
	return nil
}

func (t *memTx) Holdings(userID uint) ([]models.Holding, error) {
	var out []models.Holding
	for _, h := range t.m.holdings {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (t *memTx) HoldingsBySymbol(userID uint, symbol string) ([]models.Holding, error) {
	var out []models.Holding
	for _, h := range t.m.holdings {
		if h.UserID == userID && h.Symbol == symbol {
			out = append(out, h)
		}
	}
	return out, nil
}

func (t *memTx) CreateHolding(h *models.Holding) error {
	if err := t.fail("CreateHolding"); err != nil {
		return err
	}
	h.ID = t.m.id()
	t.m.holdings[h.ID] = *h
	return nil
}

func (t *memTx) UpdateHolding(h *models.Holding) error {
	if err := t.fail("UpdateHolding"); err != nil {
		return err
	}
	t.m.holdings[h.ID] = *h
	return nil
}

func (t *memTx) DeleteHolding(id uint) error {
	if err := t.fail("DeleteHolding"); err != nil {
		return err
	}
	delete(t.m.holdings, id)
	return nil
}

func (t *memTx) AppendTransaction(r *models.Transaction) error {
	if err := t.fail("AppendTransaction"); err != nil {
		return err
	}
	r.ID = t.m.id()
	t.m.records = append(t.m.records, *r)
	return nil
}

func (t *memTx) Transactions(userID uint) ([]models.Transaction, error) {
	var out []models.Transaction
	for i := len(t.m.records) - 1; i >= 0; i-- {
		if t.m.records[i].UserID == userID {
			out = append(out, t.m.records[i])
		}
	}
	return out, nil
}

func (t *memTx) RecordPrices(prices []models.StockPrice) error {
	if err := t.fail("RecordPrices"); err != nil {
		return err
	}
	t.m.prices = append(t.m.prices, prices...)
	return nil
}

// fakeQuotes serves quotes from a map; err, when set, is returned for
// every lookup.
type fakeQuotes struct {
	mu     sync.Mutex
	quotes map[string]quotes.Quote
	err    error
	calls  int
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{quotes: make(map[string]quotes.Quote)}
}

func (f *fakeQuotes) set(symbol, name, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[symbol] = quotes.Quote{Symbol: symbol, Name: name, Price: decimal.RequireFromString(price)}
}

func (f *fakeQuotes) remove(symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.quotes, symbol)
}

func (f *fakeQuotes) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeQuotes) Lookup(ctx context.Context, symbol string) (quotes.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return quotes.Quote{}, f.err
	}
	q, ok := f.quotes[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return quotes.Quote{}, quotes.ErrNotFound
	}
	return q, nil
}

// blockingQuotes never answers before ctx is done.
type blockingQuotes struct{}

func (blockingQuotes) Lookup(ctx context.Context, symbol string) (quotes.Quote, error) {
	<-ctx.Done()
	return quotes.Quote{}, ctx.Err()
}

var testNow = time.Date(2024, time.March, 1, 15, 30, 0, 0, time.UTC)

func newTestService(store Store, provider QuoteProvider, opts ...Option) *Service {
	logger := logrus.New()
	logger.Out = io.Discard
	logger.Level = logrus.DebugLevel

	opts = append([]Option{
		WithLogger(logrus.NewEntry(logger)),
		WithClock(func() time.Time { return testNow }),
		WithHashCost(bcrypt.MinCost),
	}, opts...)
	return NewService(store, provider, opts...)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
