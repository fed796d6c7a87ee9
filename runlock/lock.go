// Package runlock provides a Redis lock that keeps two contract test runs from resetting the same
// database at the same time.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"apollo.io/contract-tests/framework"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis key shared by every run against the same users table.
const DefaultKey = "contract-tests:registration:lock"

var (
	// ErrLockHeld means another run currently owns the lock.
	ErrLockHeld = errors.New("run lock is held by another run")

	// ErrLockNotHeld means Release was called but the lock had already expired or been taken over.
	ErrLockNotHeld = errors.New("run lock is not held by this run")
)

// Deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a single-owner lock identified by a random token for this run.
type Lock struct {
	client redis.UniversalClient
	key    string
	token  string
	ttl    time.Duration
}

// New creates a Lock on DefaultKey. The lock expires after ttl even if it is never released.
func New(client redis.UniversalClient, ttl time.Duration) *Lock {
	return NewWithKey(client, DefaultKey, ttl)
}

// NewWithKey is like New but uses the given key.
func NewWithKey(client redis.UniversalClient, key string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// NewClient creates a Redis client for the given host:port address.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
}

// Key returns the Redis key of the lock.
func (l *Lock) Key() string { return l.key }

// Token returns the value that identifies this run as the owner.
func (l *Lock) Token() string { return l.token }

// Acquire takes the lock. It returns an error wrapping ErrLockHeld if another run has it, or an
// infrastructure error if Redis could not be reached. It does not wait.
func (l *Lock) Acquire(ctx context.Context) error {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return framework.Infrastructure("acquire run lock", err)
	}
	if ok {
		return nil
	}
	holder, err := l.client.Get(ctx, l.key).Result()
	if err != nil {
		return fmt.Errorf("%w (key %s)", ErrLockHeld, l.key)
	}
	return fmt.Errorf("%w (key %s, holder %s)", ErrLockHeld, l.key, holder)
}

// Release gives up the lock if this run still owns it.
func (l *Lock) Release(ctx context.Context) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return framework.Infrastructure("release run lock", err)
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}
