package dto

import (
	"time"

	"ai-screenwriting-be/pkg/store"

	"github.com/google/uuid"
)

type ListEntitiesRequest struct {
	Type   string `query:"type" validate:"omitempty,oneof=character location scene"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

type ScreenplayEntityResponse struct {
	Id            uuid.UUID         `json:"id"`
	ChatSessionId uuid.UUID         `json:"chat_session_id"`
	Type          string            `json:"type"`
	Name          string            `json:"name"`
	Answers       map[string]string `json:"answers"`
	Seed          map[string]string `json:"seed,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// WorkflowCompletedMessage is published on the in-process workflow.completed topic.
type WorkflowCompletedMessage struct {
	SessionId  uuid.UUID                `json:"session_id"`
	UserId     uuid.UUID                `json:"user_id"`
	Completion store.WorkflowCompletion `json:"completion"`
}

// TranscriptAppendedMessage is published on the in-process transcript.appended topic.
type TranscriptAppendedMessage struct {
	SessionId uuid.UUID     `json:"session_id"`
	Message   store.Message `json:"message"`
}
