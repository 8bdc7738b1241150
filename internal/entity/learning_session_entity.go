package entity

import (
	"time"

	"ai-tutorchat-be/internal/apperror"

	"github.com/google/uuid"
)

// TurnState is the conversation position of a learning session.
type TurnState string

const (
	StateAwaitingInitialAnswer TurnState = "AWAITING_INITIAL_ANSWER"
	StateAwaitingFollowUp      TurnState = "AWAITING_FOLLOW_UP"
	StateAwaitingNextAction    TurnState = "AWAITING_NEXT_ACTION"
	StateEnded                 TurnState = "ENDED"
)

// IsValid reports whether s is one of the defined turn states.
func (s TurnState) IsValid() bool {
	switch s {
	case StateAwaitingInitialAnswer, StateAwaitingFollowUp, StateAwaitingNextAction, StateEnded:
		return true
	}
	return false
}

// LearningSession is the aggregate for one tutoring dialogue. All mutation
// goes through methods so the invariants hold at every observation point:
// TurnState is always a defined value, QuestionIndex stays in range while the
// session is live, and Scores never contains a question that was not reached.
type LearningSession struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	TopicId       uuid.UUID
	QuestionIndex int
	QuestionIds   []uuid.UUID
	TurnState     TurnState
	Scores        map[uuid.UUID]int
	InitialScore  *int
	StartedAt     time.Time
	EndedAt       *time.Time
}

// NewLearningSession creates a session positioned on the first question.
func NewLearningSession(userId, topicId uuid.UUID, questionIds []uuid.UUID, now time.Time) (*LearningSession, error) {
	if len(questionIds) == 0 {
		return nil, apperror.Validation("cannot start a session with an empty question bank")
	}
	return &LearningSession{
		Id:            uuid.New(),
		UserId:        userId,
		TopicId:       topicId,
		QuestionIndex: 0,
		QuestionIds:   append([]uuid.UUID(nil), questionIds...),
		TurnState:     StateAwaitingInitialAnswer,
		Scores:        make(map[uuid.UUID]int),
		StartedAt:     now,
	}, nil
}

// CurrentQuestionId returns the id of the question the session is positioned on.
func (s *LearningSession) CurrentQuestionId() (uuid.UUID, error) {
	if s.TurnState == StateEnded {
		return uuid.Nil, apperror.State("session %s already ended", s.Id)
	}
	if s.QuestionIndex < 0 || s.QuestionIndex >= len(s.QuestionIds) {
		return uuid.Nil, apperror.State("question index %d out of range (%d questions)", s.QuestionIndex, len(s.QuestionIds))
	}
	return s.QuestionIds[s.QuestionIndex], nil
}

// RecordScore stores the final 1-5 score for the given question. The question
// must be at or before the current position; a re-record for the current
// question overwrites (clarification give-away path).
func (s *LearningSession) RecordScore(questionId uuid.UUID, score int) error {
	if score < 1 || score > 5 {
		return apperror.Validation("score %d out of range 1-5", score)
	}
	reached := false
	for i := 0; i <= s.QuestionIndex && i < len(s.QuestionIds); i++ {
		if s.QuestionIds[i] == questionId {
			reached = true
			break
		}
	}
	if !reached {
		return apperror.State("question %s not yet reached", questionId)
	}
	if s.Scores == nil {
		s.Scores = make(map[uuid.UUID]int)
	}
	s.Scores[questionId] = score
	return nil
}

// RememberInitialScore keeps the first-attempt score while a follow-up is pending.
func (s *LearningSession) RememberInitialScore(score int) {
	s.InitialScore = &score
}

// ClearInitialScore drops the pending first-attempt score.
func (s *LearningSession) ClearInitialScore() {
	s.InitialScore = nil
}

// AwaitFollowUp parks the session until the learner retries the question.
func (s *LearningSession) AwaitFollowUp() {
	s.TurnState = StateAwaitingFollowUp
}

// AwaitNextAction parks the session until the learner chooses what to do next.
func (s *LearningSession) AwaitNextAction() {
	s.TurnState = StateAwaitingNextAction
}

// HasNextQuestion reports whether advancing would land on a valid question.
func (s *LearningSession) HasNextQuestion() bool {
	return s.QuestionIndex+1 < len(s.QuestionIds)
}

// Advance moves to the next question and resets per-question turn state.
func (s *LearningSession) Advance() error {
	if !s.HasNextQuestion() {
		return apperror.State("no questions remain after index %d", s.QuestionIndex)
	}
	s.QuestionIndex++
	s.InitialScore = nil
	s.TurnState = StateAwaitingInitialAnswer
	return nil
}

// End archives the session. The record is kept, not deleted.
func (s *LearningSession) End(now time.Time) {
	s.TurnState = StateEnded
	s.EndedAt = &now
}

// AverageScore returns the mean of all recorded scores, 0 when none exist.
func (s *LearningSession) AverageScore() float64 {
	if len(s.Scores) == 0 {
		return 0
	}
	total := 0
	for _, v := range s.Scores {
		total += v
	}
	return float64(total) / float64(len(s.Scores))
}

// Clone returns a deep copy. The store hands out clones so callers can mutate
// freely and the cached copy stays untouched until an explicit save.
func (s *LearningSession) Clone() *LearningSession {
	out := *s
	out.QuestionIds = append([]uuid.UUID(nil), s.QuestionIds...)
	out.Scores = make(map[uuid.UUID]int, len(s.Scores))
	for k, v := range s.Scores {
		out.Scores[k] = v
	}
	if s.InitialScore != nil {
		v := *s.InitialScore
		out.InitialScore = &v
	}
	if s.EndedAt != nil {
		v := *s.EndedAt
		out.EndedAt = &v
	}
	return &out
}
