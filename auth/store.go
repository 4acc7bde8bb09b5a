package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
)

// ErrTokenNotFound is returned for refresh tokens that were never saved,
// were revoked or have expired.
var ErrTokenNotFound = errors.New("refresh token not found")

// TokenStore remembers the refresh tokens that may still be exchanged.
type TokenStore interface {
	Save(ctx context.Context, token string, accountID uint, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (uint, error)
	// Consume removes the token and returns its account in one step, so a
	// token can be exchanged at most once.
	Consume(ctx context.Context, token string) (uint, error)
	Revoke(ctx context.Context, token string) error
}

type RedisTokenStore struct {
	rdb *redis.Client
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func refreshKey(token string) string {
	return "refresh:" + token
}

func (s *RedisTokenStore) Save(ctx context.Context, token string, accountID uint, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, refreshKey(token), accountID, ttl).Err(); err != nil {
		return fmt.Errorf("error storing refresh token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Lookup(ctx context.Context, token string) (uint, error) {
	id, err := s.rdb.Get(ctx, refreshKey(token)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrTokenNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("error reading refresh token: %w", err)
	}
	return uint(id), nil
}

func (s *RedisTokenStore) Consume(ctx context.Context, token string) (uint, error) {
	id, err := s.rdb.GetDel(ctx, refreshKey(token)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrTokenNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("error consuming refresh token: %w", err)
	}
	return uint(id), nil
}

func (s *RedisTokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, refreshKey(token)).Err(); err != nil {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}
	return nil
}

// MemoryTokenStore keeps refresh tokens in a bounded LRU cache. When it is
// full the least recently used token is forgotten, which logs that session
// out.
type MemoryTokenStore struct {
	cache *lru.Cache
	now   func() time.Time

	// mu makes read-check-remove sequences atomic; the cache locks each
	// call on its own.
	mu sync.Mutex
}

type memoryEntry struct {
	accountID uint
	expires   time.Time
}

func NewMemoryTokenStore(size int) (*MemoryTokenStore, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &MemoryTokenStore{cache: cache, now: time.Now}, nil
}

func (s *MemoryTokenStore) Save(ctx context.Context, token string, accountID uint, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Add(token, memoryEntry{accountID: accountID, expires: s.now().Add(ttl)})
	return nil
}

func (s *MemoryTokenStore) Lookup(ctx context.Context, token string) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get(token, false)
}

func (s *MemoryTokenStore) Consume(ctx context.Context, token string) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get(token, true)
}

func (s *MemoryTokenStore) Revoke(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Remove(token)
	return nil
}

// get must be called with mu held. Expired entries are dropped.
func (s *MemoryTokenStore) get(token string, remove bool) (uint, error) {
	v, ok := s.cache.Get(token)
	if !ok {
		return 0, ErrTokenNotFound
	}
	e := v.(memoryEntry)
	expired := !s.now().Before(e.expires)
	if remove || expired {
		s.cache.Remove(token)
	}
	if expired {
		return 0, ErrTokenNotFound
	}
	return e.accountID, nil
}
