package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-tutorchat-be/internal/entity"
	"ai-tutorchat-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionTTL = 1 * time.Hour

// SessionCache is the Redis-backed fast tier, for deployments where several
// instances want to share the cache. Values are stored as JSON.
type SessionCache struct {
	rdb *redis.Client
}

var _ contract.SessionCache = &SessionCache{}

func NewSessionCache(rdb *redis.Client) *SessionCache {
	return &SessionCache{rdb: rdb}
}

func sessionKey(id uuid.UUID) string {
	return fmt.Sprintf("session:%s", id)
}

func (c *SessionCache) Get(ctx context.Context, sessionId uuid.UUID) (*entity.LearningSession, bool) {
	raw, err := c.rdb.Get(ctx, sessionKey(sessionId)).Bytes()
	if err != nil {
		return nil, false
	}
	var session entity.LearningSession
	if err := json.Unmarshal(raw, &session); err != nil {
		// Corrupt entry; drop it so the durable tier repopulates.
		c.rdb.Del(ctx, sessionKey(sessionId))
		return nil, false
	}
	return &session, true
}

func (c *SessionCache) Set(ctx context.Context, session *entity.LearningSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return c.rdb.Set(ctx, sessionKey(session.Id), raw, sessionTTL).Err()
}

func (c *SessionCache) Delete(ctx context.Context, sessionId uuid.UUID) error {
	return c.rdb.Del(ctx, sessionKey(sessionId)).Err()
}
