package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type LearningSession struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId        uuid.UUID      `gorm:"type:uuid;not null;index"` // User ownership for data isolation
	TopicId       uuid.UUID      `gorm:"type:uuid;not null;index"`
	QuestionIndex int            `gorm:"not null;default:0"`
	QuestionIds   datatypes.JSON `gorm:"type:jsonb;not null"`
	TurnState     string         `gorm:"type:text;not null"`
	Scores        datatypes.JSON `gorm:"type:jsonb"`
	InitialScore  *int           `gorm:"type:int"`
	StartedAt     time.Time      `gorm:"not null"`
	EndedAt       *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (LearningSession) TableName() string {
	return "learning_sessions"
}
