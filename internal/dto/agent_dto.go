package dto

import (
	"time"

	"ai-screenwriting-be/pkg/store"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title       string `json:"title" validate:"max=200"`
	Model       string `json:"model" validate:"max=128"`
	InitialMode string `json:"initial_mode" validate:"omitempty,oneof=chat director image quick-video scene-visualizer dialogue"`
}

type SessionResponse struct {
	Id        uuid.UUID   `json:"id"`
	Title     string      `json:"title"`
	CreatedAt time.Time   `json:"created_at"`
	State     store.State `json:"state"`
}

type RangeDTO struct {
	Start int `json:"start" validate:"min=0"`
	End   int `json:"end" validate:"gtefield=Start"`
}

type SceneContextDTO struct {
	SceneNumber int      `json:"scene_number" validate:"min=0"`
	Heading     string   `json:"heading" validate:"required,max=200"`
	Characters  []string `json:"characters"`
	Beat        string   `json:"beat"`
}

// EntityContextDTO leaves the type unchecked here: unknown types are
// rejected by the interview catalog.
type EntityContextDTO struct {
	Type     string            `json:"type" validate:"required"`
	Workflow string            `json:"workflow" validate:"omitempty,oneof=interview"`
	Seed     map[string]string `json:"seed"`
}

type LaunchRequest struct {
	Source         string            `json:"source" validate:"omitempty,oneof=shortcut button context_menu entity"`
	Mode           string            `json:"mode" validate:"omitempty,oneof=chat director image quick-video scene-visualizer dialogue"`
	SelectedText   string            `json:"selected_text"`
	SelectionRange *RangeDTO         `json:"selection_range"`
	InitialPrompt  string            `json:"initial_prompt"`
	SceneContext   *SceneContextDTO  `json:"scene_context"`
	EntityContext  *EntityContextDTO `json:"entity_context"`
}

type MountRequest struct {
	Trigger        *LaunchRequest `json:"trigger"`
	InitialMode    string         `json:"initial_mode" validate:"omitempty,oneof=chat director image quick-video scene-visualizer dialogue"`
	InitialPrompt  string         `json:"initial_prompt"`
	SelectedText   string         `json:"selected_text"`
	SelectionRange *RangeDTO      `json:"selection_range"`
}

type SendRequest struct {
	Text           string `json:"text"`
	EditorContent  string `json:"editor_content"`
	CursorPosition int    `json:"cursor_position" validate:"min=0"`
}

type SendResponse struct {
	Accepted bool   `json:"accepted"`
	Outcome  string `json:"outcome"`
}

type ModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=chat director image quick-video scene-visualizer dialogue"`
}

type ModelRequest struct {
	Model string `json:"model" validate:"required,max=128"`
}

type InputRequest struct {
	Text string `json:"text"`
}

type SelectionRequest struct {
	Text  string    `json:"text" validate:"required"`
	Range *RangeDTO `json:"range"`
}

type AutoContextRequest struct {
	Source     string   `json:"source" validate:"required"`
	Heading    string   `json:"heading"`
	Characters []string `json:"characters"`
	Excerpt    string   `json:"excerpt"`
}

type ContextEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type AttachmentRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	MimeType string `json:"mime_type"`
	URL      string `json:"url" validate:"omitempty,url"`
}

type MenuRequest struct {
	Menu string `json:"menu" validate:"required,oneof=mode model attach"`
	Open bool   `json:"open"`
}

type InsertRequest struct {
	Text string `json:"text" validate:"required"`
}

type MessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}

type InterviewStepResponse struct {
	Key      string   `json:"key"`
	Question string   `json:"question"`
	Required bool     `json:"required"`
	Choices  []string `json:"choices,omitempty"`
}

type InterviewResponse struct {
	Kind  string                  `json:"kind"`
	Intro string                  `json:"intro"`
	Steps []InterviewStepResponse `json:"steps"`
}
