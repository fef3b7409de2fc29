package store

import "maps"

// Action is one named mutation of the state. The set of actions is closed:
// only this package can implement it.
type Action interface {
	Name() string
	apply(s *State)
}

// AppendMessage appends a message to the transcript. Appending a message whose
// ID is already present is a no-op.
type AppendMessage struct{ Message Message }

// ReplaceMessages swaps the whole transcript (e.g. history restored from storage).
type ReplaceMessages struct{ Messages []Message }

// ClearMessages empties the transcript.
type ClearMessages struct{}

// SetStreaming sets the streaming flag and the accumulated streaming buffer.
type SetStreaming struct {
	Streaming bool
	Text      string
}

// SetMode switches the active mode and closes every transient menu.
type SetMode struct{ Mode AgentMode }

// SetModel selects the generation model.
type SetModel struct{ Model string }

// SetInput sets the input buffer.
type SetInput struct{ Text string }

// SetPlaceholder sets the input placeholder.
type SetPlaceholder struct{ Text string }

// SetAttachments replaces the attachment list.
type SetAttachments struct{ Attachments []Attachment }

// AddAttachment adds an attachment unless one with the same name is present.
type AddAttachment struct{ Attachment Attachment }

// RemoveAttachment removes the attachment with the given name.
type RemoveAttachment struct{ AttachmentName string }

// SetSelectionContext stores selected editor text together with its range.
type SetSelectionContext struct {
	Text  string
	Range *Range
}

// SetSceneContext replaces the scene context supplied by the editor.
type SetSceneContext struct{ Scene SceneContext }

// SetAutoContext sets or, with nil, clears the cursor-derived context.
type SetAutoContext struct{ Auto *AutoContext }

// ClearContext clears selection, selection range, scene context and the rewrite flag together.
type ClearContext struct{}

// SetContextEnabled toggles automatic context injection.
type SetContextEnabled struct{ Enabled bool }

// SetWasInRewriteMode records whether the surface was opened for a rewrite.
type SetWasInRewriteMode struct{ Value bool }

// SetWorkflow sets the live workflow cursor. A nil workflow clears only the cursor.
type SetWorkflow struct{ Workflow *ActiveWorkflow }

// ClearWorkflow ends a workflow: cursor, completion data and banner are cleared and
// the default placeholder is restored.
type ClearWorkflow struct{}

// SetWorkflowCompletion stages the completion payload of a finished interview.
type SetWorkflowCompletion struct{ Completion WorkflowCompletion }

// ClearWorkflowCompletion drops the staged completion payload.
type ClearWorkflowCompletion struct{}

// SetEntityBanner shows the entity banner.
type SetEntityBanner struct{ Banner EntityContextBanner }

// ClearEntityBanner closes the banner. A running workflow cannot outlive its banner,
// so the workflow is cancelled as well.
type ClearEntityBanner struct{}

// SetMenu opens or closes one transient menu.
type SetMenu struct {
	Menu Menu
	Open bool
}

// CloseMenus closes every transient menu.
type CloseMenus struct{}

func (AppendMessage) Name() string           { return "APPEND_MESSAGE" }
func (ReplaceMessages) Name() string         { return "REPLACE_MESSAGES" }
func (ClearMessages) Name() string           { return "CLEAR_MESSAGES" }
func (SetStreaming) Name() string            { return "SET_STREAMING" }
func (SetMode) Name() string                 { return "SET_MODE" }
func (SetModel) Name() string                { return "SET_MODEL" }
func (SetInput) Name() string                { return "SET_INPUT" }
func (SetPlaceholder) Name() string          { return "SET_PLACEHOLDER" }
func (SetAttachments) Name() string          { return "SET_ATTACHMENTS" }
func (AddAttachment) Name() string           { return "ADD_ATTACHMENT" }
func (RemoveAttachment) Name() string        { return "REMOVE_ATTACHMENT" }
func (SetSelectionContext) Name() string     { return "SET_SELECTION_CONTEXT" }
func (SetSceneContext) Name() string         { return "SET_SCENE_CONTEXT" }
func (SetAutoContext) Name() string          { return "SET_AUTO_CONTEXT" }
func (ClearContext) Name() string            { return "CLEAR_CONTEXT" }
func (SetContextEnabled) Name() string       { return "SET_CONTEXT_ENABLED" }
func (SetWasInRewriteMode) Name() string     { return "SET_WAS_IN_REWRITE_MODE" }
func (SetWorkflow) Name() string             { return "SET_WORKFLOW" }
func (ClearWorkflow) Name() string           { return "CLEAR_WORKFLOW" }
func (SetWorkflowCompletion) Name() string   { return "SET_WORKFLOW_COMPLETION" }
func (ClearWorkflowCompletion) Name() string { return "CLEAR_WORKFLOW_COMPLETION" }
func (SetEntityBanner) Name() string         { return "SET_ENTITY_BANNER" }
func (ClearEntityBanner) Name() string       { return "CLEAR_ENTITY_BANNER" }
func (SetMenu) Name() string                 { return "SET_MENU" }
func (CloseMenus) Name() string              { return "CLOSE_MENUS" }

func (a AppendMessage) apply(s *State) {
	for _, m := range s.Messages {
		if m.ID == a.Message.ID {
			return
		}
	}
	// Full slice expression forces a copy so earlier snapshots keep their backing array.
	s.Messages = append(s.Messages[:len(s.Messages):len(s.Messages)], a.Message)
}

func (a ReplaceMessages) apply(s *State) {
	s.Messages = append([]Message(nil), a.Messages...)
}

func (ClearMessages) apply(s *State) {
	s.Messages = nil
}

func (a SetStreaming) apply(s *State) {
	s.IsStreaming = a.Streaming
	s.StreamingText = a.Text
}

func (a SetMode) apply(s *State) {
	s.ActiveMode = a.Mode
	closeMenus(s)
}

func (a SetModel) apply(s *State) {
	s.Model = a.Model
}

func (a SetInput) apply(s *State) {
	s.Input = a.Text
}

func (a SetPlaceholder) apply(s *State) {
	s.Placeholder = a.Text
}

func (a SetAttachments) apply(s *State) {
	s.Attachments = append([]Attachment(nil), a.Attachments...)
}

func (a AddAttachment) apply(s *State) {
	for _, att := range s.Attachments {
		if att.Name == a.Attachment.Name {
			return
		}
	}
	s.Attachments = append(s.Attachments[:len(s.Attachments):len(s.Attachments)], a.Attachment)
}

func (a RemoveAttachment) apply(s *State) {
	kept := make([]Attachment, 0, len(s.Attachments))
	for _, att := range s.Attachments {
		if att.Name != a.AttachmentName {
			kept = append(kept, att)
		}
	}
	s.Attachments = kept
}

func (a SetSelectionContext) apply(s *State) {
	sel := &SelectionContext{Text: a.Text}
	if a.Range != nil {
		r := *a.Range
		sel.Range = &r
	}
	s.SelectedTextContext = sel
}

func (a SetSceneContext) apply(s *State) {
	scene := a.Scene
	scene.Characters = append([]string(nil), a.Scene.Characters...)
	s.SceneContext = &scene
}

func (a SetAutoContext) apply(s *State) {
	if a.Auto == nil {
		s.AutoContext = nil
		return
	}
	auto := *a.Auto
	auto.Characters = append([]string(nil), a.Auto.Characters...)
	s.AutoContext = &auto
}

func (ClearContext) apply(s *State) {
	s.SelectedTextContext = nil
	s.SceneContext = nil
	s.WasInRewriteMode = false
}

func (a SetContextEnabled) apply(s *State) {
	s.ContextEnabled = a.Enabled
}

func (a SetWasInRewriteMode) apply(s *State) {
	s.WasInRewriteMode = a.Value
}

func (a SetWorkflow) apply(s *State) {
	if a.Workflow == nil {
		s.ActiveWorkflow = nil
		return
	}
	wf := *a.Workflow
	wf.CollectedAnswers = maps.Clone(a.Workflow.CollectedAnswers)
	if wf.CollectedAnswers == nil {
		wf.CollectedAnswers = map[string]string{}
	}
	s.ActiveWorkflow = &wf
}

func (ClearWorkflow) apply(s *State) {
	s.ActiveWorkflow = nil
	s.WorkflowCompletionData = nil
	s.EntityContextBanner = nil
	s.Placeholder = DefaultPlaceholder
}

func (a SetWorkflowCompletion) apply(s *State) {
	c := a.Completion
	c.Answers = maps.Clone(a.Completion.Answers)
	c.Seed = maps.Clone(a.Completion.Seed)
	s.WorkflowCompletionData = &c
}

func (ClearWorkflowCompletion) apply(s *State) {
	s.WorkflowCompletionData = nil
}

func (a SetEntityBanner) apply(s *State) {
	b := a.Banner
	b.Seed = maps.Clone(a.Banner.Seed)
	s.EntityContextBanner = &b
}

func (ClearEntityBanner) apply(s *State) {
	s.EntityContextBanner = nil
	if s.ActiveWorkflow != nil {
		s.ActiveWorkflow = nil
		s.Placeholder = DefaultPlaceholder
	}
}

func (a SetMenu) apply(s *State) {
	switch a.Menu {
	case MenuMode:
		s.ShowModeMenu = a.Open
	case MenuModel:
		s.ShowModelMenu = a.Open
	case MenuAttach:
		s.ShowAttachMenu = a.Open
	}
}

func (CloseMenus) apply(s *State) {
	closeMenus(s)
}

func closeMenus(s *State) {
	s.ShowModeMenu = false
	s.ShowModelMenu = false
	s.ShowAttachMenu = false
}
