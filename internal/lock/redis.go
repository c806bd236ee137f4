package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still carries our token, so
// an expired lock re-acquired by another instance is never released by
// the previous holder.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Redis is a Locker shared by every server instance that talks to the
// same Redis. Locks are SET NX with a TTL so a crashed holder cannot
// block a slot forever.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedis returns a Redis locker. Keys are prefix + ":" + key; a
// trailing colon on prefix is dropped. ttl bounds how long a lock survives a
// crashed holder; retry is the polling interval while waiting.
func NewRedis(rdb *redis.Client, prefix string, ttl, retry time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if retry <= 0 {
		retry = 25 * time.Millisecond
	}
	return &Redis{rdb: rdb, prefix: strings.TrimSuffix(prefix, ":"), ttl: ttl, retry: retry}
}

// Lock polls SET NX until it wins or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	full := r.keyFor(key)
	for {
		ok, err := r.rdb.SetNX(ctx, full, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrNotAcquired
			}
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ErrNotAcquired
		case <-time.After(r.retry):
		}
	}
	return func() {
		// Released with a fresh context: the request context may already be done.
		c, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(c, r.rdb, []string{full}, token).Err()
	}, nil
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (r *Redis) keyFor(key string) string {
	return r.prefix + ":" + key
}
