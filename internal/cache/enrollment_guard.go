package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrGuardHeld is returned when another request already holds the guard
var ErrGuardHeld = errors.New("enrollment already in progress")

// DefaultGuardTTL bounds how long a crashed request can block a retry
const DefaultGuardTTL = 10 * time.Second

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// EnrollmentGuard serialises enroll attempts of one user into one session
// across server instances. A nil client makes every Acquire succeed.
type EnrollmentGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewEnrollmentGuard creates a guard; client may be nil
func NewEnrollmentGuard(client *redis.Client, ttl time.Duration) *EnrollmentGuard {
	if ttl <= 0 {
		ttl = DefaultGuardTTL
	}
	return &EnrollmentGuard{client: client, prefix: "enroll:", ttl: ttl}
}

func (g *EnrollmentGuard) key(username, sessionID string) string {
	return fmt.Sprintf("%s%s:%s", g.prefix, sessionID, username)
}

// Acquire takes the guard for (username, sessionID). The returned release func
// must be called once the attempt finishes.
func (g *EnrollmentGuard) Acquire(ctx context.Context, username, sessionID string) (func(), error) {
	if g == nil || g.client == nil {
		return func() {}, nil
	}

	key := g.key(username, sessionID)
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("enrollment guard setnx: %w", err)
	}
	if !ok {
		return nil, ErrGuardHeld
	}

	release := func() {
		// Fresh context: the request context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, g.client, []string{key}, token).Err()
	}
	return release, nil
}
