package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"ai-tutorchat-be/internal/apperror"
	"ai-tutorchat-be/internal/dto"
	"ai-tutorchat-be/internal/entity"
	"ai-tutorchat-be/internal/pkg/logger"
	"ai-tutorchat-be/internal/repository/specification"
	"ai-tutorchat-be/internal/repository/unitofwork"
	"ai-tutorchat-be/internal/store"
	"ai-tutorchat-be/pkg/events"
	"ai-tutorchat-be/pkg/retention"

	"github.com/google/uuid"
)

// EndSessionOutcome is the scheduling decision made when a session ends.
type EndSessionOutcome struct {
	AverageScore float64
	Rating       int
	Review       retention.Review
}

type ISessionService interface {
	Start(ctx context.Context, userId uuid.UUID, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error)
	Show(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionSummaryResponse, error)

	// End archives the session and reschedules its topic in one transaction.
	// The caller must not persist the session again afterwards.
	End(ctx context.Context, session *entity.LearningSession, now time.Time) (*EndSessionOutcome, error)

	// EndSession is the explicit-endpoint variant of End: it resolves the
	// session for the calling learner, checks it is still live, and archives it.
	EndSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.EndSessionResponse, error)
}

type sessionService struct {
	uowFactory       unitofwork.RepositoryFactory
	sessionStore     *store.SessionStore
	scheduler        *retention.Scheduler
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewSessionService(
	uowFactory unitofwork.RepositoryFactory,
	sessionStore *store.SessionStore,
	scheduler *retention.Scheduler,
	publisherService IPublisherService,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		uowFactory:       uowFactory,
		sessionStore:     sessionStore,
		scheduler:        scheduler,
		publisherService: publisherService,
		logger:           log,
	}
}

func (s *sessionService) Start(ctx context.Context, userId uuid.UUID, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	topic, err := uow.TopicRepository().FindOne(ctx,
		specification.ByID{ID: req.TopicId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, apperror.Persistence("load topic", err)
	}
	if topic == nil {
		return nil, apperror.Validation("topic %s not found", req.TopicId)
	}
	if len(topic.QuestionIds) == 0 {
		return nil, apperror.Validation("topic %s has no questions", req.TopicId)
	}

	firstQuestion, err := uow.QuestionRepository().FindOne(ctx, specification.ByID{ID: topic.QuestionIds[0]})
	if err != nil {
		return nil, apperror.Persistence("load question", err)
	}
	if firstQuestion == nil {
		return nil, apperror.State("question %s missing from bank", topic.QuestionIds[0])
	}

	now := time.Now().UTC()
	session, err := entity.NewLearningSession(userId, topic.Id, topic.QuestionIds, now)
	if err != nil {
		return nil, err
	}

	if err := s.sessionStore.Create(ctx, session); err != nil {
		return nil, err
	}

	s.emit(ctx, events.NewSessionStartedEvent(
		session.Id.String(), userId.String(), topic.Id.String(), len(session.QuestionIds),
	))

	return &dto.StartSessionResponse{
		SessionId:     session.Id,
		TopicId:       topic.Id,
		TurnState:     string(session.TurnState),
		QuestionCount: len(session.QuestionIds),
		FirstQuestion: firstQuestion.Text,
		StartedAt:     session.StartedAt,
	}, nil
}

func (s *sessionService) Show(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionSummaryResponse, error) {
	session, err := s.sessionStore.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserId != userId {
		return nil, apperror.State("session %s not found", sessionId)
	}

	resp := &dto.SessionSummaryResponse{
		SessionId:     session.Id,
		TopicId:       session.TopicId,
		TurnState:     string(session.TurnState),
		QuestionIndex: session.QuestionIndex,
		QuestionCount: len(session.QuestionIds),
		AverageScore:  session.AverageScore(),
		StartedAt:     session.StartedAt,
		EndedAt:       session.EndedAt,
	}

	if session.TurnState == entity.StateEnded {
		rating := int(math.Round(session.AverageScore()))
		resp.SessionRating = &rating

		uow := s.uowFactory.NewUnitOfWork(ctx)
		topic, err := uow.TopicRepository().FindOne(ctx, specification.ByID{ID: session.TopicId})
		if err != nil {
			return nil, apperror.Persistence("load topic", err)
		}
		if topic != nil {
			resp.NextReviewAt = topic.NextReviewAt
		}
	}

	return resp, nil
}

func (s *sessionService) End(ctx context.Context, session *entity.LearningSession, now time.Time) (*EndSessionOutcome, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	topic, err := uow.TopicRepository().FindOne(ctx, specification.ByID{ID: session.TopicId})
	if err != nil {
		return nil, apperror.Persistence("load topic", err)
	}
	if topic == nil {
		return nil, apperror.State("topic %s missing for session %s", session.TopicId, session.Id)
	}

	average := session.AverageScore()
	rating := int(math.Round(average))
	review := s.scheduler.NextReview(topic.Retention, rating, topic.LastReviewedAt, now)

	session.End(now)
	topic.MarkReviewed(review.Params, review.NextReviewAt, now)

	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Persistence("begin end-session transaction", err)
	}
	defer uow.Rollback()

	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		return nil, apperror.Persistence("archive session", err)
	}
	if err := uow.TopicRepository().Update(ctx, topic); err != nil {
		return nil, apperror.Persistence("reschedule topic", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, apperror.Persistence("commit end-session transaction", err)
	}

	// Drop the cached live copy; the next read repopulates from the archive.
	s.sessionStore.Evict(ctx, session.Id)

	s.emit(ctx, events.NewSessionEndedEvent(
		session.Id.String(), session.UserId.String(), topic.Id.String(),
		average, rating, review.NextReviewAt,
	))

	return &EndSessionOutcome{
		AverageScore: average,
		Rating:       rating,
		Review:       review,
	}, nil
}

func (s *sessionService) EndSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.EndSessionResponse, error) {
	session, err := s.sessionStore.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserId != userId {
		return nil, apperror.State("session %s not found", sessionId)
	}
	if session.TurnState == entity.StateEnded {
		return nil, apperror.State("session %s already ended", sessionId)
	}

	outcome, err := s.End(ctx, session, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	answered := len(session.Scores)
	return &dto.EndSessionResponse{
		SessionId:         session.Id,
		QuestionsAnswered: answered,
		AverageScore:      outcome.AverageScore,
		NextReviewAt:      outcome.Review.NextReviewAt,
		Message:           sessionCompleteMessage(outcome.AverageScore, answered, outcome.Review.NextReviewAt),
	}, nil
}

// sessionCompleteMessage is the learner-facing wrap-up line, shared by the
// conversational end intent and the explicit end endpoint.
func sessionCompleteMessage(average float64, answered int, nextReview time.Time) string {
	return fmt.Sprintf(
		"Session complete. You averaged %.1f across %d questions. Next review: %s.",
		average, answered, nextReview.Format("Monday, 2 January 2006"),
	)
}

// emit hands an event to the in-process channel. Best-effort: a failure is
// logged and never surfaces to the learner.
func (s *sessionService) emit(ctx context.Context, event events.Event) {
	if s.publisherService == nil {
		return
	}
	payload, err := json.Marshal(dto.PublishSessionEventMessage{
		EventType: event.EventType(),
		Payload:   event.Payload(),
	})
	if err != nil {
		s.logger.Error("SessionService", "failed to marshal event", map[string]interface{}{
			"event_type": event.EventType(),
			"error":      err.Error(),
		})
		return
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		s.logger.Warn("SessionService", "failed to publish event", map[string]interface{}{
			"event_type": event.EventType(),
			"error":      err.Error(),
		})
	}
}
