package unitofwork

import (
	"context"

	"ai-tutorchat-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionRepository() contract.SessionRepository
	TopicRepository() contract.TopicRepository
	QuestionRepository() contract.QuestionRepository
}
