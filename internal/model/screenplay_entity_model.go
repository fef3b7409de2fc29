package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ScreenplayEntity is a character, location or scene created by a guided interview.
type ScreenplayEntity struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId        uuid.UUID      `gorm:"type:uuid;not null;index"`
	ChatSessionId uuid.UUID      `gorm:"type:uuid;index"`
	WorkflowId    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	EntityType    string         `gorm:"type:varchar(16);not null;index"`
	Name          string         `gorm:"type:text;not null"`
	Answers       datatypes.JSON `gorm:"type:jsonb;not null"`
	Seed          datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (ScreenplayEntity) TableName() string {
	return "screenplay_entities"
}
