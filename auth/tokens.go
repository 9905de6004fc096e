package auth

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// ErrNoSession is returned when a token is unknown, revoked or expired.
var ErrNoSession = errors.New("no active session")

// TokenStore maps opaque session tokens to account ids with an expiry.
// Sessions are revocable server side as opposed to self contained tokens.
type TokenStore interface {
	Save(ctx context.Context, token, accountId string, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

const sessionKeyPrefix = "session__"

// RedisTokenStore keeps session tokens in Redis so every server instance sees
// the same sessions and expiry is handled by the store itself.
type RedisTokenStore struct {
	inner *redis.Client
}

// NewRedisTokenStore connects to the Redis instance specified by env and
// verifies the connection.
func NewRedisTokenStore(ctx context.Context) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
		Password: os.Getenv("REDIS_PASSWD"),
		DB:       0, // use default DB
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "connect redis")
	}
	return &RedisTokenStore{inner: client}, nil
}

func (r *RedisTokenStore) Save(ctx context.Context, token, accountId string, ttl time.Duration) error {
	return r.inner.Set(ctx, sessionKeyPrefix+token, accountId, ttl).Err()
}

func (r *RedisTokenStore) Lookup(ctx context.Context, token string) (string, error) {
	val, err := r.inner.Get(ctx, sessionKeyPrefix+token).Result()
	if err == redis.Nil {
		return "", ErrNoSession
	}
	if err != nil {
		return "", errors.Wrap(err, "lookup session token")
	}
	return val, nil
}

func (r *RedisTokenStore) Revoke(ctx context.Context, token string) error {
	return r.inner.Del(ctx, sessionKeyPrefix+token).Err()
}

// MemoryTokenStore is the single process TokenStore used in tests and local
// development runs without Redis.
type MemoryTokenStore struct {
	mu      sync.Mutex
	entries map[string]memoryToken
}

type memoryToken struct {
	accountId string
	expiresAt time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{entries: map[string]memoryToken{}}
}

func (m *MemoryTokenStore) Save(ctx context.Context, token, accountId string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[token] = memoryToken{accountId: accountId, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryTokenStore) Lookup(ctx context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[token]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(m.entries, token)
		return "", ErrNoSession
	}
	return entry.accountId, nil
}

func (m *MemoryTokenStore) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, token)
	return nil
}
