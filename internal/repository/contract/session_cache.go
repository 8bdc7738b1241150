package contract

import (
	"context"

	"ai-tutorchat-be/internal/entity"

	"github.com/google/uuid"
)

// SessionCache is the fast tier keyed by session id. Implementations are
// best-effort: the store logs and continues on cache errors.
type SessionCache interface {
	Get(ctx context.Context, sessionId uuid.UUID) (*entity.LearningSession, bool)
	Set(ctx context.Context, session *entity.LearningSession) error
	Delete(ctx context.Context, sessionId uuid.UUID) error
}
