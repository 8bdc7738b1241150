package contract

import (
	"context"

	"ai-tutorchat-be/internal/entity"
	"ai-tutorchat-be/internal/repository/specification"
)

// QuestionRepository reads the shared question bank. Questions are
// immutable once created, so there is no update path.
type QuestionRepository interface {
	Create(ctx context.Context, question *entity.Question) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Question, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Question, error)
}
