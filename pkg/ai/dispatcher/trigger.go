package dispatcher

import (
	"errors"
	"strings"

	"ai-screenwriting-be/pkg/store"
)

var ErrInvalidTrigger = errors.New("invalid trigger")

// Trigger sources, used for metrics and logs.
const (
	SourceShortcut    = "shortcut"
	SourceButton      = "button"
	SourceContextMenu = "context_menu"
	SourceEntity      = "entity"
	SourceMount       = "mount"
)

// LaunchTrigger is an external request to open or steer the surface.
type LaunchTrigger struct {
	Source         string
	Mode           store.AgentMode
	SelectedText   string
	SelectionRange *store.Range
	InitialPrompt  string
	SceneContext   *store.SceneContext
	EntityContext  *store.EntityContextBanner
}

// StartsWorkflow reports whether the trigger asks for a guided interview.
func (t *LaunchTrigger) StartsWorkflow() bool {
	return t != nil && t.EntityContext != nil && t.EntityContext.Workflow == store.WorkflowInterview
}

// MountOptions are the inputs available when the surface is first opened.
type MountOptions struct {
	Trigger        *LaunchTrigger
	InitialMode    store.AgentMode
	InitialPrompt  string
	SelectedText   string
	SelectionRange *store.Range
}

func (o MountOptions) prompt() string {
	if o.InitialPrompt != "" {
		return o.InitialPrompt
	}
	if o.Trigger != nil {
		return o.Trigger.InitialPrompt
	}
	return ""
}

func (o MountOptions) selection() (string, *store.Range) {
	if strings.TrimSpace(o.SelectedText) != "" {
		return o.SelectedText, o.SelectionRange
	}
	if o.Trigger != nil && strings.TrimSpace(o.Trigger.SelectedText) != "" {
		return o.Trigger.SelectedText, o.Trigger.SelectionRange
	}
	return "", nil
}

func (o MountOptions) source() string {
	if o.Trigger != nil && o.Trigger.Source != "" {
		return o.Trigger.Source
	}
	return SourceMount
}

// EffectKind names a side effect the host performs after a commit.
type EffectKind string

const (
	EffectScroll EffectKind = "scroll"
	EffectInsert EffectKind = "insert"
)

type Effect struct {
	Kind EffectKind `json:"kind"`
	Text string     `json:"text,omitempty"`
}

// Hooks are the host callbacks. Any of them may be nil.
type Hooks struct {
	OnEffect           func(Effect)
	OnInsert           func(text string)
	OnWorkflowComplete func(data store.WorkflowCompletion)
}
