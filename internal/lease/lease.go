// Package lease provides a Redis-backed exclusive lease so that only one
// process in a fleet runs a periodic job per interval.
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps failures talking to Redis.
var ErrRedisUnavailable = errors.New("lease redis unavailable")

// releaseLua deletes the lease only if this owner still holds it.
// KEYS[1] = lease key
// ARGV[1] = owner token
var releaseLua = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// Lease is a named lease held under a random per-instance owner token.
type Lease struct {
	client redis.UniversalClient
	key    string
	owner  string
}

// New returns a lease on key owned by a fresh random token.
func New(client redis.UniversalClient, key string) *Lease {
	return &Lease{
		client: client,
		key:    key,
		owner:  uuid.NewString(),
	}
}

// Key returns the Redis key of the lease.
func (l *Lease) Key() string {
	return l.key
}

// Owner returns this instance's owner token.
func (l *Lease) Owner() string {
	return l.owner
}

// Acquire takes the lease for ttl if nobody holds it. It never extends a
// lease already held, including by this owner.
func (l *Lease) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ok, nil
}

// Release drops the lease if this owner holds it and reports whether it did.
func (l *Lease) Release(ctx context.Context) (bool, error) {
	n, err := releaseLua.Run(ctx, l.client, []string{l.key}, l.owner).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}
