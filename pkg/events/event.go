package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_ENDED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewSessionStartedEvent marks the creation of a learning session.
func NewSessionStartedEvent(sessionId, userId, topicId string, questionCount int) Event {
	return BaseEvent{
		Type: "SESSION_STARTED",
		Data: map[string]interface{}{
			"session_id":     sessionId,
			"user_id":        userId,
			"topic_id":       topicId,
			"question_count": questionCount,
		},
		OccurredAt: time.Now(),
	}
}

// NewSessionEndedEvent marks the archival of a session together with the
// scheduling outcome, so downstream consumers see the full review decision.
func NewSessionEndedEvent(sessionId, userId, topicId string, averageScore float64, rating int, nextReviewAt time.Time) Event {
	return BaseEvent{
		Type: "SESSION_ENDED",
		Data: map[string]interface{}{
			"session_id":     sessionId,
			"user_id":        userId,
			"topic_id":       topicId,
			"average_score":  averageScore,
			"session_rating": rating,
			"next_review_at": nextReviewAt.Format(time.RFC3339),
		},
		OccurredAt: time.Now(),
	}
}
