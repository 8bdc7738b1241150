package entity

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType classifies how a question expects to be answered.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
	QuestionTypeExplanation    QuestionType = "explanation"
)

// Question is an immutable item of a topic's question bank.
type Question struct {
	Id         uuid.UUID
	TopicId    uuid.UUID
	Text       string
	Type       QuestionType
	Difficulty int // 1-3
	Metadata   map[string]interface{}
	CreatedAt  time.Time
}
