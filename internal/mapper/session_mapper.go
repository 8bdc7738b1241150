package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"ai-tutorchat-be/internal/entity"
	"ai-tutorchat-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToModel(e *entity.LearningSession) (*model.LearningSession, error) {
	questionIds := make([]string, len(e.QuestionIds))
	for i, id := range e.QuestionIds {
		questionIds[i] = id.String()
	}
	questionIdsJson, err := json.Marshal(questionIds)
	if err != nil {
		return nil, fmt.Errorf("marshal question ids: %w", err)
	}

	scores := make(map[string]int, len(e.Scores))
	for id, score := range e.Scores {
		scores[id.String()] = score
	}
	scoresJson, err := json.Marshal(scores)
	if err != nil {
		return nil, fmt.Errorf("marshal scores: %w", err)
	}

	return &model.LearningSession{
		Id:            e.Id,
		UserId:        e.UserId,
		TopicId:       e.TopicId,
		QuestionIndex: e.QuestionIndex,
		QuestionIds:   datatypes.JSON(questionIdsJson),
		TurnState:     string(e.TurnState),
		Scores:        datatypes.JSON(scoresJson),
		InitialScore:  e.InitialScore,
		StartedAt:     e.StartedAt,
		EndedAt:       e.EndedAt,
	}, nil
}

// ToEntity rebuilds the aggregate from a durable row. Timestamps are
// normalized to UTC and fields that predate the current schema are
// backfilled (older rows may carry null scores).
func (m *SessionMapper) ToEntity(mo *model.LearningSession) (*entity.LearningSession, error) {
	var rawIds []string
	if len(mo.QuestionIds) > 0 {
		if err := json.Unmarshal(mo.QuestionIds, &rawIds); err != nil {
			return nil, fmt.Errorf("unmarshal question ids: %w", err)
		}
	}
	questionIds := make([]uuid.UUID, 0, len(rawIds))
	for _, raw := range rawIds {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse question id %q: %w", raw, err)
		}
		questionIds = append(questionIds, id)
	}

	scores := make(map[uuid.UUID]int)
	if len(mo.Scores) > 0 {
		var rawScores map[string]int
		if err := json.Unmarshal(mo.Scores, &rawScores); err != nil {
			return nil, fmt.Errorf("unmarshal scores: %w", err)
		}
		for raw, score := range rawScores {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("parse scored question id %q: %w", raw, err)
			}
			scores[id] = score
		}
	}

	var endedAt *time.Time
	if mo.EndedAt != nil {
		v := mo.EndedAt.UTC()
		endedAt = &v
	}

	return &entity.LearningSession{
		Id:            mo.Id,
		UserId:        mo.UserId,
		TopicId:       mo.TopicId,
		QuestionIndex: mo.QuestionIndex,
		QuestionIds:   questionIds,
		TurnState:     entity.TurnState(mo.TurnState),
		Scores:        scores,
		InitialScore:  mo.InitialScore,
		StartedAt:     mo.StartedAt.UTC(),
		EndedAt:       endedAt,
	}, nil
}
