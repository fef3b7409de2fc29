package store

import (
	"time"

	"github.com/google/uuid"
)

// AgentMode is the assistance capability the conversational surface is operating in.
// Exactly one mode is active at any time.
type AgentMode string

const (
	ModeChat            AgentMode = "chat"
	ModeDirector        AgentMode = "director"
	ModeImage           AgentMode = "image"
	ModeQuickVideo      AgentMode = "quick-video"
	ModeSceneVisualizer AgentMode = "scene-visualizer"
	ModeDialogue        AgentMode = "dialogue"
)

// ModeCount is the number of AgentMode values. Modes must list every one of them.
const ModeCount = 6

// Modes lists every AgentMode in display order.
var Modes = [...]AgentMode{
	ModeChat,
	ModeDirector,
	ModeImage,
	ModeQuickVideo,
	ModeSceneVisualizer,
	ModeDialogue,
}

// Fails to compile when Modes and ModeCount disagree.
var _ = [1]struct{}{}[len(Modes)-ModeCount]

// Valid reports whether m is one of the declared modes.
func (m AgentMode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

func (m AgentMode) String() string {
	return string(m)
}

// Role is the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Messages are never edited once appended.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Mode      AgentMode `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage builds a message with a fresh ID and the current time.
func NewMessage(role Role, content string, mode AgentMode) Message {
	return Message{
		ID:        uuid.New(),
		Role:      role,
		Content:   content,
		Mode:      mode,
		Timestamp: time.Now().UTC(),
	}
}

// Range is a character span inside the external editor.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SelectionContext is editor text the user selected for a rewrite-style request.
type SelectionContext struct {
	Text  string `json:"text"`
	Range *Range `json:"range,omitempty"`
}

// SceneContext identifies the screenplay scene the user is positioned in.
type SceneContext struct {
	SceneNumber int      `json:"scene_number,omitempty"`
	Heading     string   `json:"heading"`
	Characters  []string `json:"characters,omitempty"`
	Beat        string   `json:"beat,omitempty"`
}

// AutoContext is context derived from the cursor position rather than an explicit selection.
type AutoContext struct {
	Source     string   `json:"source"`
	Heading    string   `json:"heading,omitempty"`
	Characters []string `json:"characters,omitempty"`
	Excerpt    string   `json:"excerpt,omitempty"`
}

// EntityType is the kind of screenplay entity a guided workflow builds.
type EntityType string

const (
	EntityCharacter EntityType = "character"
	EntityLocation  EntityType = "location"
	EntityScene     EntityType = "scene"
)

// Valid reports whether t is a kind an interview can build.
func (t EntityType) Valid() bool {
	switch t {
	case EntityCharacter, EntityLocation, EntityScene:
		return true
	}
	return false
}

// WorkflowInterview marks an entity banner that runs the guided interview.
const WorkflowInterview = "interview"

// EntityContextBanner describes the entity a workflow is being run to create.
type EntityContextBanner struct {
	Type     EntityType        `json:"type"`
	Workflow string            `json:"workflow,omitempty"`
	Seed     map[string]string `json:"seed,omitempty"`
}

// ActiveWorkflow is the live cursor through a guided interview.
type ActiveWorkflow struct {
	Kind             EntityType        `json:"kind"`
	StepIndex        int               `json:"step_index"`
	CollectedAnswers map[string]string `json:"collected_answers"`
}

// WorkflowCompletion is staged when an interview has gathered every answer.
// It lives until the completion consumer clears the workflow.
type WorkflowCompletion struct {
	ID          uuid.UUID         `json:"id"`
	Kind        EntityType        `json:"kind"`
	Answers     map[string]string `json:"answers"`
	Seed        map[string]string `json:"seed,omitempty"`
	CompletedAt time.Time         `json:"completed_at"`
}

// Attachment is a file attached to the next request.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Menu names a transient menu on the surface.
type Menu string

const (
	MenuMode   Menu = "mode"
	MenuModel  Menu = "model"
	MenuAttach Menu = "attach"
)

// DefaultPlaceholder is shown in the input when no workflow overrides it.
const DefaultPlaceholder = "Ask anything about your screenplay..."

// State is an immutable snapshot of one conversation surface.
// Slices and maps inside a State are never mutated after the snapshot is published.
type State struct {
	Version uint64 `json:"version"`

	Messages      []Message `json:"messages"`
	IsStreaming   bool      `json:"is_streaming"`
	StreamingText string    `json:"streaming_text"`

	ActiveMode  AgentMode    `json:"active_mode"`
	Model       string       `json:"model"`
	Input       string       `json:"input"`
	Placeholder string       `json:"placeholder"`
	Attachments []Attachment `json:"attachments"`

	SelectedTextContext *SelectionContext `json:"selected_text_context"`
	SceneContext        *SceneContext     `json:"scene_context"`
	AutoContext         *AutoContext      `json:"auto_context"`
	ContextEnabled      bool              `json:"context_enabled"`
	WasInRewriteMode    bool              `json:"was_in_rewrite_mode"`

	ActiveWorkflow         *ActiveWorkflow      `json:"active_workflow"`
	WorkflowCompletionData *WorkflowCompletion  `json:"workflow_completion_data"`
	EntityContextBanner    *EntityContextBanner `json:"entity_context_banner"`

	ShowModeMenu   bool `json:"show_mode_menu"`
	ShowModelMenu  bool `json:"show_model_menu"`
	ShowAttachMenu bool `json:"show_attach_menu"`
}

// Initial returns the state of a freshly opened surface.
func Initial(model string) State {
	return State{
		ActiveMode:     ModeChat,
		Model:          model,
		Placeholder:    DefaultPlaceholder,
		ContextEnabled: true,
	}
}

// SelectionRange returns the selection range, or nil when no selection is held.
func (s State) SelectionRange() *Range {
	if s.SelectedTextContext == nil {
		return nil
	}
	return s.SelectedTextContext.Range
}

// WorkflowRunning reports whether a guided interview is in progress.
func (s State) WorkflowRunning() bool {
	return s.ActiveWorkflow != nil
}
