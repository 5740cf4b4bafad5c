package sweep

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lease guards a tick so that two sweepers started against the same stores do
// not work the same batch at once.
type Lease interface {
	// Acquire returns false when another holder owns the lease.
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease is a SET NX PX lease. The TTL bounds how long a crashed holder
// blocks other sweepers.
type RedisLease struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

func NewRedisLease(client *redis.Client, key, token string, ttl time.Duration) *RedisLease {
	return &RedisLease{client: client, key: key, token: token, ttl: ttl}
}

func (l *RedisLease) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
}

func (l *RedisLease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
