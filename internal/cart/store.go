package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists carts between requests, keyed by session id.
type Store interface {
	Load(ctx context.Context, sessionID string) (Cart, error)
	Save(ctx context.Context, sessionID string, c Cart) error
	Clear(ctx context.Context, sessionID string) error
}

// KeyCart is the redis key template of a session cart: cart:{session_id}.
const KeyCart = "cart:%s"

// RedisStore keeps carts as JSON values that expire with the session.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore creates a cart store over rdb.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (Cart, error) {
	raw, err := s.rdb.Get(ctx, fmt.Sprintf(KeyCart, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return decode(raw)
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, c Cart) error {
	if len(c) == 0 {
		return s.Clear(ctx, sessionID)
	}
	raw, err := encode(c)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, fmt.Sprintf(KeyCart, sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, fmt.Sprintf(KeyCart, sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// JSON object keys must be strings, so ids are encoded in base 10.
func encode(c Cart) ([]byte, error) {
	m := make(map[string]int, len(c))
	for id, q := range c {
		m[strconv.FormatUint(uint64(id), 10)] = q
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (Cart, error) {
	var m map[string]int
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	c := make(Cart, len(m))
	for k, q := range m {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil || q <= 0 {
			continue
		}
		c[uint(id)] = q
	}
	return c, nil
}

type memoryEntry struct {
	cart      Cart
	expiresAt time.Time
}

// MemoryStore keeps carts in process memory; used when no redis is configured.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	carts map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryStore creates an in-process cart store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, carts: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.carts[sessionID]
	if !ok || (s.ttl > 0 && s.now().After(e.expiresAt)) {
		delete(s.carts, sessionID)
		return New(), nil
	}
	c := make(Cart, len(e.cart))
	for id, q := range e.cart {
		c[id] = q
	}
	return c, nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, c Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(c) == 0 {
		delete(s.carts, sessionID)
		return nil
	}
	cp := make(Cart, len(c))
	for id, q := range c {
		cp[id] = q
	}
	s.carts[sessionID] = memoryEntry{cart: cp, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	return nil
}
