package service

import (
	"context"
	"math"
	"strings"
	"time"

	"ai-tutorchat-be/internal/apperror"
	"ai-tutorchat-be/internal/dto"
	"ai-tutorchat-be/internal/entity"
	"ai-tutorchat-be/internal/pkg/logger"
	"ai-tutorchat-be/internal/repository/specification"
	"ai-tutorchat-be/internal/repository/unitofwork"
	"ai-tutorchat-be/internal/store"
	"ai-tutorchat-be/pkg/tutor"

	"github.com/google/uuid"
)

// passingScore is the first-attempt score that skips the follow-up round.
const passingScore = 4

type IConversationService interface {
	ProcessTurn(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.TurnRequest) (*dto.TurnResponse, error)
}

type turnOutcome struct {
	response *dto.TurnResponse
	persist  bool
}

type turnHandler func(ctx context.Context, session *entity.LearningSession, question *entity.Question, message string) (*turnOutcome, error)

// conversationService drives one learner turn through the session state
// machine. Gateways run before any session mutation, so a failed turn leaves
// the stored session untouched and the learner can simply retry.
type conversationService struct {
	sessionStore   *store.SessionStore
	uowFactory     unitofwork.RepositoryFactory
	sessionService ISessionService
	scorer         *tutor.ScoringGateway
	feedback       *tutor.FeedbackGenerator
	intents        *tutor.IntentRouter
	clarifier      *tutor.ClarificationHandler
	logger         logger.ILogger

	handlers map[entity.TurnState]turnHandler
}

func NewConversationService(
	sessionStore *store.SessionStore,
	uowFactory unitofwork.RepositoryFactory,
	sessionService ISessionService,
	scorer *tutor.ScoringGateway,
	feedback *tutor.FeedbackGenerator,
	intents *tutor.IntentRouter,
	clarifier *tutor.ClarificationHandler,
	log logger.ILogger,
) IConversationService {
	c := &conversationService{
		sessionStore:   sessionStore,
		uowFactory:     uowFactory,
		sessionService: sessionService,
		scorer:         scorer,
		feedback:       feedback,
		intents:        intents,
		clarifier:      clarifier,
		logger:         log,
	}
	c.handlers = map[entity.TurnState]turnHandler{
		entity.StateAwaitingInitialAnswer: c.handleInitialAnswer,
		entity.StateAwaitingFollowUp:      c.handleFollowUp,
		entity.StateAwaitingNextAction:    c.handleNextAction,
	}
	return c
}

func (c *conversationService) ProcessTurn(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.TurnRequest) (*dto.TurnResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperror.Validation("message must not be empty")
	}

	session, err := c.sessionStore.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserId != userId {
		return nil, apperror.State("session %s not found", sessionId)
	}
	if session.TurnState == entity.StateEnded {
		return nil, apperror.State("session %s already ended", sessionId)
	}

	questionId, err := session.CurrentQuestionId()
	if err != nil {
		return nil, err
	}
	question, err := c.loadQuestion(ctx, questionId)
	if err != nil {
		return nil, err
	}

	handler, ok := c.handlers[session.TurnState]
	if !ok {
		return nil, apperror.State("session %s in unknown state %q", sessionId, session.TurnState)
	}

	outcome, err := handler(ctx, session, question, message)
	if err != nil {
		c.logger.Warn("ConversationService", "turn failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"turn_state": string(session.TurnState),
			"error":      err.Error(),
		})
		return nil, err
	}

	if outcome.persist {
		if err := c.sessionStore.Save(ctx, session); err != nil {
			return nil, err
		}
	}
	return outcome.response, nil
}

// handleInitialAnswer scores the first attempt. A passing score records it
// and moves on; a weaker one parks the score and offers a guided retry.
func (c *conversationService) handleInitialAnswer(ctx context.Context, session *entity.LearningSession, question *entity.Question, message string) (*turnOutcome, error) {
	result, err := c.scorer.Score(ctx, question, message, false)
	if err != nil {
		return nil, err
	}
	reply, err := c.feedback.Generate(ctx, question, message, result.Score)
	if err != nil {
		return nil, err
	}

	if result.Score >= passingScore {
		if err := session.RecordScore(question.Id, result.Score); err != nil {
			return nil, err
		}
		session.AwaitNextAction()
		score := result.Score
		return &turnOutcome{
			response: &dto.TurnResponse{
				SessionId: session.Id,
				TurnState: string(session.TurnState),
				Reply:     reply,
				Score:     &score,
			},
			persist: true,
		}, nil
	}

	session.RememberInitialScore(result.Score)
	session.AwaitFollowUp()
	return &turnOutcome{
		response: &dto.TurnResponse{
			SessionId: session.Id,
			TurnState: string(session.TurnState),
			Reply:     reply,
		},
		persist: true,
	}, nil
}

// handleFollowUp scores the second attempt and records the average of both.
func (c *conversationService) handleFollowUp(ctx context.Context, session *entity.LearningSession, question *entity.Question, message string) (*turnOutcome, error) {
	if session.InitialScore == nil {
		return nil, apperror.State("session %s has no pending first attempt", session.Id)
	}

	result, err := c.scorer.Score(ctx, question, message, true)
	if err != nil {
		return nil, err
	}
	final := int(math.Round(float64(*session.InitialScore+result.Score) / 2.0))
	reply, err := c.feedback.Generate(ctx, question, message, final)
	if err != nil {
		return nil, err
	}

	if err := session.RecordScore(question.Id, final); err != nil {
		return nil, err
	}
	session.ClearInitialScore()
	session.AwaitNextAction()

	return &turnOutcome{
		response: &dto.TurnResponse{
			SessionId: session.Id,
			TurnState: string(session.TurnState),
			Reply:     reply,
			Score:     &final,
		},
		persist: true,
	}, nil
}

// handleNextAction routes the learner's free-form reply: move on, wrap up,
// or answer a clarifying question about the current material.
func (c *conversationService) handleNextAction(ctx context.Context, session *entity.LearningSession, question *entity.Question, message string) (*turnOutcome, error) {
	intent, err := c.intents.Classify(ctx, message)
	if err != nil {
		return nil, err
	}

	switch intent {
	case tutor.IntentAdvance:
		return c.advance(ctx, session)
	case tutor.IntentEnd:
		return c.end(ctx, session)
	default:
		return c.clarify(ctx, session, question, message)
	}
}

func (c *conversationService) advance(ctx context.Context, session *entity.LearningSession) (*turnOutcome, error) {
	if !session.HasNextQuestion() {
		// Last question already done. Stay put; nothing to persist.
		return &turnOutcome{
			response: &dto.TurnResponse{
				SessionId: session.Id,
				TurnState: string(session.TurnState),
				Reply:     `That was the last question. Say "end" to finish the session, or keep asking about the material.`,
			},
		}, nil
	}

	if err := session.Advance(); err != nil {
		return nil, err
	}
	nextId, err := session.CurrentQuestionId()
	if err != nil {
		return nil, err
	}
	next, err := c.loadQuestion(ctx, nextId)
	if err != nil {
		return nil, err
	}

	return &turnOutcome{
		response: &dto.TurnResponse{
			SessionId:    session.Id,
			TurnState:    string(session.TurnState),
			Reply:        next.Text,
			NextQuestion: next.Text,
		},
		persist: true,
	}, nil
}

func (c *conversationService) end(ctx context.Context, session *entity.LearningSession) (*turnOutcome, error) {
	outcome, err := c.sessionService.End(ctx, session, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	reply := sessionCompleteMessage(outcome.AverageScore, len(session.Scores), outcome.Review.NextReviewAt)
	// End already archived the session transactionally; do not save again.
	return &turnOutcome{
		response: &dto.TurnResponse{
			SessionId: session.Id,
			TurnState: string(session.TurnState),
			Reply:     reply,
			Ended:     true,
		},
	}, nil
}

func (c *conversationService) clarify(ctx context.Context, session *entity.LearningSession, question *entity.Question, message string) (*turnOutcome, error) {
	answer, impact, err := c.clarifier.Handle(ctx, question, message)
	if err != nil {
		return nil, err
	}

	outcome := &turnOutcome{
		response: &dto.TurnResponse{
			SessionId: session.Id,
			TurnState: string(session.TurnState),
			Reply:     answer,
		},
	}

	// A reply that gave the answer away caps the question at the minimum score.
	if impact != nil && impact.AdjustedScore == 1 {
		if err := session.RecordScore(question.Id, 1); err != nil {
			return nil, err
		}
		adjusted := 1
		outcome.response.Score = &adjusted
		outcome.persist = true
	}
	return outcome, nil
}

func (c *conversationService) loadQuestion(ctx context.Context, questionId uuid.UUID) (*entity.Question, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	question, err := uow.QuestionRepository().FindOne(ctx, specification.ByID{ID: questionId})
	if err != nil {
		return nil, apperror.Persistence("load question", err)
	}
	if question == nil {
		return nil, apperror.State("question %s missing from bank", questionId)
	}
	return question, nil
}
