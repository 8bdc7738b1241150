package entity

import (
	"time"

	"github.com/google/uuid"
)

// RetentionParams is the spaced-repetition state of a topic.
// Ease and Interval are always strictly positive.
type RetentionParams struct {
	Ease       float64
	Interval   int // days
	Repetition int
}

// DefaultRetentionParams is the state of a topic that was never reviewed.
func DefaultRetentionParams() RetentionParams {
	return RetentionParams{Ease: 2.5, Interval: 1, Repetition: 0}
}

// Normalized repairs out-of-range values that can appear in records written
// before the current schema (older rows stored zero ease/interval).
func (p RetentionParams) Normalized() RetentionParams {
	if p.Ease <= 0 {
		p.Ease = 2.5
	}
	if p.Interval < 1 {
		p.Interval = 1
	}
	if p.Repetition < 0 {
		p.Repetition = 0
	}
	return p
}

type Topic struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	Name           string
	Description    string
	QuestionIds    []uuid.UUID
	Retention      RetentionParams
	LastReviewedAt *time.Time
	NextReviewAt   *time.Time
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// MarkReviewed applies a scheduling decision at session end. This is the only
// mutation path for the retention fields.
func (t *Topic) MarkReviewed(params RetentionParams, nextReviewAt, now time.Time) {
	t.Retention = params
	t.LastReviewedAt = &now
	t.NextReviewAt = &nextReviewAt
}
