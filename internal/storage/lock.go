package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// turnLockTTL bounds how long a crashed turn can hold its session. A turn
// that outlives the TTL loses the lock.
const turnLockTTL = 3 * time.Minute

func turnLockKey(id uuid.UUID) string {
	return "turn-lock:" + id.String()
}

// AcquireTurnLock claims the per-session turn lock. It returns an owner token
// on success and the empty string when another turn holds the lock.
func (r *RedisStorage) AcquireTurnLock(ctx context.Context, id uuid.UUID) (string, error) {
	token := uuid.New().String()
	ok, err := r.client.SetNX(ctx, turnLockKey(id), token, turnLockTTL).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire turn lock: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// ReleaseTurnLock releases the turn lock if the token still owns it.
func (r *RedisStorage) ReleaseTurnLock(ctx context.Context, id uuid.UUID, token string) error {
	// Only delete if we own the lock
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	if err := script.Run(ctx, r.client, []string{turnLockKey(id)}, token).Err(); err != nil {
		r.logger.Error("Failed to release turn lock", "error", err, "session_id", id.String())
		return fmt.Errorf("failed to release turn lock: %w", err)
	}
	return nil
}
