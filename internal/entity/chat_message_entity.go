package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string
	Content       string
	Mode          string
	CreatedAt     time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}
