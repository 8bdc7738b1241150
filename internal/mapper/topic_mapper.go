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

type TopicMapper struct{}

func NewTopicMapper() *TopicMapper {
	return &TopicMapper{}
}

func (m *TopicMapper) ToModel(e *entity.Topic) (*model.Topic, error) {
	questionIds := make([]string, len(e.QuestionIds))
	for i, id := range e.QuestionIds {
		questionIds[i] = id.String()
	}
	questionIdsJson, err := json.Marshal(questionIds)
	if err != nil {
		return nil, fmt.Errorf("marshal question ids: %w", err)
	}

	return &model.Topic{
		Id:             e.Id,
		UserId:         e.UserId,
		Name:           e.Name,
		Description:    e.Description,
		QuestionIds:    datatypes.JSON(questionIdsJson),
		Ease:           e.Retention.Ease,
		IntervalDays:   e.Retention.Interval,
		Repetition:     e.Retention.Repetition,
		LastReviewedAt: e.LastReviewedAt,
		NextReviewAt:   e.NextReviewAt,
		CreatedAt:      e.CreatedAt,
	}, nil
}

// ToEntity normalizes retention fields on the way out: rows written before
// the retention columns existed carry zeros and get the defaults instead.
func (m *TopicMapper) ToEntity(mo *model.Topic) (*entity.Topic, error) {
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

	retention := entity.RetentionParams{
		Ease:       mo.Ease,
		Interval:   mo.IntervalDays,
		Repetition: mo.Repetition,
	}.Normalized()

	var lastReviewedAt, nextReviewAt *time.Time
	if mo.LastReviewedAt != nil {
		v := mo.LastReviewedAt.UTC()
		lastReviewedAt = &v
	}
	if mo.NextReviewAt != nil {
		v := mo.NextReviewAt.UTC()
		nextReviewAt = &v
	}

	updatedAt := mo.UpdatedAt.UTC()

	return &entity.Topic{
		Id:             mo.Id,
		UserId:         mo.UserId,
		Name:           mo.Name,
		Description:    mo.Description,
		QuestionIds:    questionIds,
		Retention:      retention,
		LastReviewedAt: lastReviewedAt,
		NextReviewAt:   nextReviewAt,
		CreatedAt:      mo.CreatedAt.UTC(),
		UpdatedAt:      &updatedAt,
	}, nil
}
