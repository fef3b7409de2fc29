package entity

import (
	"time"

	"github.com/google/uuid"
)

type ScreenplayEntity struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	ChatSessionId uuid.UUID
	WorkflowId    uuid.UUID
	EntityType    string
	Name          string
	Answers       map[string]string
	Seed          map[string]string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
