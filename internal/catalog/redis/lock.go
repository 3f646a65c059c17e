package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-catalog/internal/logger"
)

const keyPrefix = "category_lock:"

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NameLock is a short-lived Redis lock keyed by category name. It keeps two
// instances from inserting or renaming onto the same name at the same moment.
type NameLock struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewNameLock(client *redis.Client, ttl time.Duration, log *logger.Logger) *NameLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &NameLock{Client: client, TTL: ttl, Logger: log}
}

func lockKey(name string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(name))
}

// Lock claims name for owner. false means another owner holds it.
func (l *NameLock) Lock(ctx context.Context, name, owner string) (bool, error) {
	ok, err := l.Client.SetNX(ctx, lockKey(name), owner, l.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("lock category name %q: %w", name, err)
	}
	if !ok {
		l.Logger.Debug("REDIS", fmt.Sprintf("Category name %q is locked by another writer", name))
	}
	return ok, nil
}

// Unlock releases name only if owner still holds it. The compare and delete
// run as one script so an expired lock taken over by another writer is left
// alone.
func (l *NameLock) Unlock(ctx context.Context, name, owner string) error {
	if err := unlockScript.Run(ctx, l.Client, []string{lockKey(name)}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("unlock category name %q: %w", name, err)
	}
	return nil
}
