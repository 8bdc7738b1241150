package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Question struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TopicId      uuid.UUID      `gorm:"type:uuid;not null;index"`
	Text         string         `gorm:"type:text;not null"`
	QuestionType string         `gorm:"type:text;not null"`
	Difficulty   int            `gorm:"not null;default:1"`
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
}

func (Question) TableName() string {
	return "questions"
}
