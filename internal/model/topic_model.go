package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Topic struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId         uuid.UUID      `gorm:"type:uuid;not null;index"`
	Name           string         `gorm:"type:text;not null"`
	Description    string         `gorm:"type:text"`
	QuestionIds    datatypes.JSON `gorm:"type:jsonb"`
	Ease           float64        `gorm:"not null;default:2.5"`
	IntervalDays   int            `gorm:"not null;default:1"`
	Repetition     int            `gorm:"not null;default:0"`
	LastReviewedAt *time.Time
	NextReviewAt   *time.Time `gorm:"index"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime"`
}

func (Topic) TableName() string {
	return "topics"
}
