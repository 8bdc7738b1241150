package memory

import (
	"context"
	"time"

	"ai-tutorchat-be/internal/entity"
	"ai-tutorchat-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionCache is the in-process fast tier. Entries expire after an hour of
// inactivity; expired items are purged every 10 minutes.
type SessionCache struct {
	cache *cache.Cache
}

var _ contract.SessionCache = &SessionCache{}

func NewSessionCache() *SessionCache {
	return &SessionCache{
		cache: cache.New(1*time.Hour, 10*time.Minute),
	}
}

// Get returns a detached clone so callers can mutate without corrupting the
// cached copy before a save.
func (c *SessionCache) Get(_ context.Context, sessionId uuid.UUID) (*entity.LearningSession, bool) {
	if x, found := c.cache.Get(sessionId.String()); found {
		return x.(*entity.LearningSession).Clone(), true
	}
	return nil, false
}

func (c *SessionCache) Set(_ context.Context, session *entity.LearningSession) error {
	c.cache.Set(session.Id.String(), session.Clone(), cache.DefaultExpiration)
	return nil
}

func (c *SessionCache) Delete(_ context.Context, sessionId uuid.UUID) error {
	c.cache.Delete(sessionId.String())
	return nil
}
