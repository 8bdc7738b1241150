package mapper

import (
	"encoding/json"
	"fmt"

	"ai-tutorchat-be/internal/entity"
	"ai-tutorchat-be/internal/model"

	"gorm.io/datatypes"
)

type QuestionMapper struct{}

func NewQuestionMapper() *QuestionMapper {
	return &QuestionMapper{}
}

func (m *QuestionMapper) ToModel(e *entity.Question) (*model.Question, error) {
	var metadata datatypes.JSON
	if e.Metadata != nil {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = datatypes.JSON(raw)
	}

	return &model.Question{
		Id:           e.Id,
		TopicId:      e.TopicId,
		Text:         e.Text,
		QuestionType: string(e.Type),
		Difficulty:   e.Difficulty,
		Metadata:     metadata,
		CreatedAt:    e.CreatedAt,
	}, nil
}

func (m *QuestionMapper) ToEntity(mo *model.Question) (*entity.Question, error) {
	var metadata map[string]interface{}
	if len(mo.Metadata) > 0 {
		if err := json.Unmarshal(mo.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return &entity.Question{
		Id:         mo.Id,
		TopicId:    mo.TopicId,
		Text:       mo.Text,
		Type:       entity.QuestionType(mo.QuestionType),
		Difficulty: mo.Difficulty,
		Metadata:   metadata,
		CreatedAt:  mo.CreatedAt.UTC(),
	}, nil
}
