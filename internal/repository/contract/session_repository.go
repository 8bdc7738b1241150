package contract

import (
	"context"

	"ai-tutorchat-be/internal/entity"
	"ai-tutorchat-be/internal/repository/specification"
)

// SessionRepository is the durable tier for learning sessions. FindOne
// returns (nil, nil) when no record matches.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.LearningSession) error
	Update(ctx context.Context, session *entity.LearningSession) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.LearningSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.LearningSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
