package dto

import (
	"time"

	"github.com/google/uuid"
)

// --- Sessions ---

type StartSessionRequest struct {
	TopicId uuid.UUID `json:"topic_id" validate:"required"`
}

type StartSessionResponse struct {
	SessionId     uuid.UUID `json:"session_id"`
	TopicId       uuid.UUID `json:"topic_id"`
	TurnState     string    `json:"turn_state"`
	QuestionCount int       `json:"question_count"`
	FirstQuestion string    `json:"first_question"`
	StartedAt     time.Time `json:"started_at"`
}

type TurnRequest struct {
	Message string `json:"message" validate:"required"`
}

type TurnResponse struct {
	SessionId    uuid.UUID `json:"session_id"`
	TurnState    string    `json:"turn_state"`
	Reply        string    `json:"reply"`
	Score        *int      `json:"score,omitempty"`
	NextQuestion string    `json:"next_question,omitempty"`
	Ended        bool      `json:"ended"`
}

type EndSessionResponse struct {
	SessionId         uuid.UUID `json:"session_id"`
	QuestionsAnswered int       `json:"questions_answered"`
	AverageScore      float64   `json:"average_score"`
	NextReviewAt      time.Time `json:"next_review_at"`
	Message           string    `json:"message"`
}

type SessionSummaryResponse struct {
	SessionId      uuid.UUID  `json:"session_id"`
	TopicId        uuid.UUID  `json:"topic_id"`
	TurnState      string     `json:"turn_state"`
	QuestionIndex  int        `json:"question_index"`
	QuestionCount  int        `json:"question_count"`
	AverageScore   float64    `json:"average_score"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	NextReviewAt   *time.Time `json:"next_review_at,omitempty"`
	SessionRating  *int       `json:"session_rating,omitempty"`
}

// PublishSessionEventMessage is the in-process envelope the conversation
// services hand to the event relay.
type PublishSessionEventMessage struct {
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
}

// --- Topics & review dashboard ---

type CreateTopicRequest struct {
	Name        string                  `json:"name" validate:"required,min=1,max=200"`
	Description string                  `json:"description,omitempty"`
	Questions   []CreateQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

type CreateQuestionRequest struct {
	Text       string `json:"text" validate:"required,min=1"`
	Type       string `json:"type" validate:"required,oneof=multiple_choice short_answer explanation"`
	Difficulty int    `json:"difficulty" validate:"omitempty,min=1,max=3"`
}

type TopicResponse struct {
	Id            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Ease          float64    `json:"ease"`
	IntervalDays  int        `json:"interval_days"`
	Repetition    int        `json:"repetition"`
	LastReviewAt  *time.Time `json:"last_review_at,omitempty"`
	NextReviewAt  *time.Time `json:"next_review_at,omitempty"`
	QuestionCount int        `json:"question_count"`
}

type ReviewStatusResponse struct {
	TopicId      uuid.UUID  `json:"topic_id"`
	Name         string     `json:"name"`
	Urgency      string     `json:"urgency"`
	Retention    *float64   `json:"retention,omitempty"`
	NextReviewAt *time.Time `json:"next_review_at,omitempty"`
	DaysUntilDue *int       `json:"days_until_due,omitempty"`
}
