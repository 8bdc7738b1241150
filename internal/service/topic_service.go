package service

import (
	"context"
	"math"
	"time"

	"ai-tutorchat-be/internal/apperror"
	"ai-tutorchat-be/internal/dto"
	"ai-tutorchat-be/internal/entity"
	"ai-tutorchat-be/internal/repository/specification"
	"ai-tutorchat-be/internal/repository/unitofwork"
	"ai-tutorchat-be/pkg/retention"

	"github.com/google/uuid"
)

type ITopicService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateTopicRequest) (*dto.TopicResponse, error)
	List(ctx context.Context, userId uuid.UUID) ([]*dto.TopicResponse, error)
	ReviewStatus(ctx context.Context, userId uuid.UUID) ([]*dto.ReviewStatusResponse, error)
}

type topicService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewTopicService(uowFactory unitofwork.RepositoryFactory) ITopicService {
	return &topicService{
		uowFactory: uowFactory,
	}
}

func (s *topicService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateTopicRequest) (*dto.TopicResponse, error) {
	now := time.Now().UTC()

	questions := make([]*entity.Question, 0, len(req.Questions))
	questionIds := make([]uuid.UUID, 0, len(req.Questions))
	topicId := uuid.New()
	for _, q := range req.Questions {
		difficulty := q.Difficulty
		if difficulty == 0 {
			difficulty = 1
		}
		question := &entity.Question{
			Id:         uuid.New(),
			TopicId:    topicId,
			Text:       q.Text,
			Type:       entity.QuestionType(q.Type),
			Difficulty: difficulty,
			CreatedAt:  now,
		}
		questions = append(questions, question)
		questionIds = append(questionIds, question.Id)
	}

	topic := &entity.Topic{
		Id:          topicId,
		UserId:      userId,
		Name:        req.Name,
		Description: req.Description,
		QuestionIds: questionIds,
		Retention:   entity.DefaultRetentionParams(),
		CreatedAt:   now,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Persistence("begin create-topic transaction", err)
	}
	defer uow.Rollback()

	if err := uow.TopicRepository().Create(ctx, topic); err != nil {
		return nil, apperror.Persistence("create topic", err)
	}
	for _, question := range questions {
		if err := uow.QuestionRepository().Create(ctx, question); err != nil {
			return nil, apperror.Persistence("create question", err)
		}
	}
	if err := uow.Commit(); err != nil {
		return nil, apperror.Persistence("commit create-topic transaction", err)
	}

	return topicResponse(topic), nil
}

func (s *topicService) List(ctx context.Context, userId uuid.UUID) ([]*dto.TopicResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	topics, err := uow.TopicRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, apperror.Persistence("list topics", err)
	}

	out := make([]*dto.TopicResponse, 0, len(topics))
	for _, topic := range topics {
		out = append(out, topicResponse(topic))
	}
	return out, nil
}

// ReviewStatus is the dashboard read model: per topic, how urgent the next
// review is and the estimated retention right now.
func (s *topicService) ReviewStatus(ctx context.Context, userId uuid.UUID) ([]*dto.ReviewStatusResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	topics, err := uow.TopicRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "next_review_at", Desc: false},
	)
	if err != nil {
		return nil, apperror.Persistence("list topics", err)
	}

	now := time.Now().UTC()
	out := make([]*dto.ReviewStatusResponse, 0, len(topics))
	for _, topic := range topics {
		status := &dto.ReviewStatusResponse{
			TopicId:      topic.Id,
			Name:         topic.Name,
			Urgency:      string(retention.ReviewUrgency(topic.NextReviewAt, now)),
			NextReviewAt: topic.NextReviewAt,
		}
		if topic.LastReviewedAt != nil {
			days := now.Sub(*topic.LastReviewedAt).Hours() / 24.0
			prob := retention.RetentionProbability(topic.Retention, days)
			status.Retention = &prob
		}
		if topic.NextReviewAt != nil {
			until := int(math.Ceil(topic.NextReviewAt.Sub(now).Hours() / 24.0))
			status.DaysUntilDue = &until
		}
		out = append(out, status)
	}
	return out, nil
}

func topicResponse(topic *entity.Topic) *dto.TopicResponse {
	return &dto.TopicResponse{
		Id:            topic.Id,
		Name:          topic.Name,
		Ease:          topic.Retention.Ease,
		IntervalDays:  topic.Retention.Interval,
		Repetition:    topic.Retention.Repetition,
		LastReviewAt:  topic.LastReviewedAt,
		NextReviewAt:  topic.NextReviewAt,
		QuestionCount: len(topic.QuestionIds),
	}
}
