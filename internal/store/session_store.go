package store

import (
	"context"

	"ai-tutorchat-be/internal/apperror"
	"ai-tutorchat-be/internal/entity"
	"ai-tutorchat-be/internal/pkg/logger"
	"ai-tutorchat-be/internal/repository/contract"
	"ai-tutorchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

// SessionStore fronts the durable session repository with a best-effort
// fast tier. Cache failures are logged and swallowed; durable failures
// surface as persistence errors because continuing would lose turns.
type SessionStore struct {
	sessions contract.SessionRepository
	cache    contract.SessionCache
	logger   logger.ILogger
}

func NewSessionStore(sessions contract.SessionRepository, cache contract.SessionCache, log logger.ILogger) *SessionStore {
	return &SessionStore{
		sessions: sessions,
		cache:    cache,
		logger:   log,
	}
}

// Get reads through the fast tier. A cache miss falls back to the durable
// tier and repopulates the cache; a durable miss returns (nil, nil).
func (s *SessionStore) Get(ctx context.Context, sessionId uuid.UUID) (*entity.LearningSession, error) {
	if session, ok := s.cache.Get(ctx, sessionId); ok {
		return session, nil
	}

	session, err := s.sessions.FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, apperror.Persistence("load session", err)
	}
	if session == nil {
		return nil, nil
	}

	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.Warn("SessionStore", "cache repopulate failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}
	return session, nil
}

// Create writes through both tiers. The durable write must succeed.
func (s *SessionStore) Create(ctx context.Context, session *entity.LearningSession) error {
	if err := s.sessions.Create(ctx, session); err != nil {
		return apperror.Persistence("create session", err)
	}
	s.setCache(ctx, session)
	return nil
}

// Save persists the post-turn state of an existing session.
func (s *SessionStore) Save(ctx context.Context, session *entity.LearningSession) error {
	if err := s.sessions.Update(ctx, session); err != nil {
		return apperror.Persistence("update session", err)
	}
	s.setCache(ctx, session)
	return nil
}

// Evict drops a session from the fast tier, e.g. after it ended.
func (s *SessionStore) Evict(ctx context.Context, sessionId uuid.UUID) {
	if err := s.cache.Delete(ctx, sessionId); err != nil {
		s.logger.Warn("SessionStore", "cache evict failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}
}

func (s *SessionStore) setCache(ctx context.Context, session *entity.LearningSession) {
	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.Warn("SessionStore", "cache write failed", map[string]interface{}{
			"session_id": session.Id.String(),
			"error":      err.Error(),
		})
	}
}
