package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetModeClosesMenus(t *testing.T) {
	for _, mode := range Modes {
		t.Run(mode.String(), func(t *testing.T) {
			s := NewStore(Initial("gpt-4o"))
			_, err := s.Dispatch(
				SetMenu{Menu: MenuMode, Open: true},
				SetMenu{Menu: MenuModel, Open: true},
				SetMenu{Menu: MenuAttach, Open: true},
			)
			require.NoError(t, err)

			next, err := s.Dispatch(SetMode{Mode: mode})
			require.NoError(t, err)

			assert.Equal(t, mode, next.ActiveMode)
			assert.False(t, next.ShowModeMenu)
			assert.False(t, next.ShowModelMenu)
			assert.False(t, next.ShowAttachMenu)
		})
	}
}

func TestSetModeRejectsUnknownMode(t *testing.T) {
	s := NewStore(Initial("gpt-4o"))

	_, err := s.Dispatch(SetMode{Mode: "storyboard"})

	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Equal(t, ModeChat, s.Snapshot().ActiveMode)
}

func TestClearContextIsAtomic(t *testing.T) {
	s := NewStore(Initial("gpt-4o"))
	_, err := s.Dispatch(
		SetSelectionContext{Text: "INT. OFFICE - DAY", Range: &Range{Start: 10, End: 27}},
		SetSceneContext{Scene: SceneContext{SceneNumber: 3, Heading: "INT. OFFICE - DAY"}},
		SetWasInRewriteMode{Value: true},
	)
	require.NoError(t, err)

	var observed []State
	unsubscribe := s.Subscribe(func(_, next State, _ []Action) {
		observed = append(observed, next)
	})
	defer unsubscribe()

	next, err := s.Dispatch(ClearContext{})
	require.NoError(t, err)

	require.Len(t, observed, 1)
	for _, st := range []State{next, observed[0]} {
		assert.Nil(t, st.SelectedTextContext)
		assert.Nil(t, st.SelectionRange())
		assert.Nil(t, st.SceneContext)
		assert.False(t, st.WasInRewriteMode)
	}
}

func TestWorkflowRequiresBanner(t *testing.T) {
	tests := []struct {
		name    string
		actions []Action
		wantErr bool
	}{
		{
			name:    "workflow without banner",
			actions: []Action{SetWorkflow{Workflow: &ActiveWorkflow{Kind: EntityCharacter}}},
			wantErr: true,
		},
		{
			name: "banner and workflow in one batch",
			actions: []Action{
				SetEntityBanner{Banner: EntityContextBanner{Type: EntityCharacter, Workflow: WorkflowInterview}},
				SetWorkflow{Workflow: &ActiveWorkflow{Kind: EntityCharacter}},
			},
		},
		{
			name: "workflow set before banner in the same batch",
			actions: []Action{
				SetWorkflow{Workflow: &ActiveWorkflow{Kind: EntityLocation}},
				SetEntityBanner{Banner: EntityContextBanner{Type: EntityLocation, Workflow: WorkflowInterview}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(Initial("gpt-4o"))

			next, err := s.Dispatch(tt.actions...)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvariant)
				assert.Equal(t, uint64(0), s.Snapshot().Version)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, next.ActiveWorkflow)
			assert.NotNil(t, next.EntityContextBanner)
		})
	}
}

func TestWorkflowStaysPairedWithChat(t *testing.T) {
	running := []Action{
		SetEntityBanner{Banner: EntityContextBanner{Type: EntityCharacter, Workflow: WorkflowInterview}},
		SetWorkflow{Workflow: &ActiveWorkflow{Kind: EntityCharacter}},
	}

	tests := []struct {
		name    string
		actions []Action
		wantErr error
	}{
		{
			name:    "banner for another entity",
			actions: []Action{SetEntityBanner{Banner: EntityContextBanner{Type: EntityLocation}}},
			wantErr: ErrInvariant,
		},
		{
			name:    "leaving chat",
			actions: []Action{SetMode{Mode: ModeImage}},
			wantErr: ErrInvariant,
		},
		{
			name:    "unknown banner type",
			actions: []Action{SetEntityBanner{Banner: EntityContextBanner{Type: "spaceship"}}},
			wantErr: ErrInvalidAction,
		},
		{
			name:    "leaving chat after cancelling",
			actions: []Action{ClearWorkflow{}, SetMode{Mode: ModeImage}},
		},
		{
			name:    "new banner after cancelling",
			actions: []Action{ClearWorkflow{}, SetEntityBanner{Banner: EntityContextBanner{Type: EntityLocation}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(Initial("gpt-4o"))
			before, err := s.Dispatch(running...)
			require.NoError(t, err)

			next, err := s.Dispatch(tt.actions...)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before.Version, s.Snapshot().Version)
				assert.Equal(t, ModeChat, s.Snapshot().ActiveMode)
				return
			}
			require.NoError(t, err)
			assert.Nil(t, next.ActiveWorkflow)
		})
	}
}

func TestClearEntityBannerCancelsWorkflow(t *testing.T) {
	s := NewStore(Initial("gpt-4o"))
	_, err := s.Dispatch(
		SetEntityBanner{Banner: EntityContextBanner{Type: EntityScene, Workflow: WorkflowInterview}},
		SetWorkflow{Workflow: &ActiveWorkflow{Kind: EntityScene}},
		SetPlaceholder{Text: "Describe the scene"},
	)
	require.NoError(t, err)

	next, err := s.Dispatch(ClearEntityBanner{})
	require.NoError(t, err)

	assert.Nil(t, next.EntityContextBanner)
	assert.Nil(t, next.ActiveWorkflow)
	assert.Equal(t, DefaultPlaceholder, next.Placeholder)
}

func TestClearWorkflow(t *testing.T) {
	s := NewStore(Initial("gpt-4o"))
	_, err := s.Dispatch(
		SetEntityBanner{Banner: EntityContextBanner{Type: EntityLocation, Workflow: WorkflowInterview}},
		SetPlaceholder{Text: "Name the location"},
		SetWorkflowCompletion{Completion: WorkflowCompletion{Kind: EntityLocation, Answers: map[string]string{"name": "Docks"}}},
	)
	require.NoError(t, err)

	next, err := s.Dispatch(ClearWorkflow{})
	require.NoError(t, err)

	assert.Nil(t, next.ActiveWorkflow)
	assert.Nil(t, next.WorkflowCompletionData)
	assert.Nil(t, next.EntityContextBanner)
	assert.Equal(t, DefaultPlaceholder, next.Placeholder)
}

func TestTranscriptIsAppendOnly(t *testing.T) {
	s := NewStore(Initial("gpt-4o"))

	var snapshots []State
	s.Subscribe(func(_, next State, _ []Action) {
		snapshots = append(snapshots, next)
	})

	first := NewMessage(RoleUser, "Hello", ModeChat)
	second := NewMessage(RoleAssistant, "Hi there", ModeChat)
	_, err := s.Dispatch(AppendMessage{Message: first})
	require.NoError(t, err)
	_, err = s.Dispatch(SetStreaming{Streaming: true, Text: "Hi"})
	require.NoError(t, err)
	_, err = s.Dispatch(AppendMessage{Message: second}, SetStreaming{})
	require.NoError(t, err)
	_, err = s.Dispatch(SetInput{Text: "draft"})
	require.NoError(t, err)

	require.Len(t, snapshots, 4)
	for i := 1; i < len(snapshots); i++ {
		prev, next := snapshots[i-1].Messages, snapshots[i].Messages
		require.GreaterOrEqual(t, len(next), len(prev))
		assert.Equal(t, prev, next[:len(prev)])
	}
	assert.Equal(t, []Message{first}, snapshots[0].Messages)
}

func TestAppendMessageIsIdempotent(t *testing.T) {
	s := NewStore(Initial("gpt-4o"))
	msg := NewMessage(RoleUser, "Hello", ModeChat)

	_, err := s.Dispatch(AppendMessage{Message: msg})
	require.NoError(t, err)
	next, err := s.Dispatch(AppendMessage{Message: msg})
	require.NoError(t, err)

	assert.Len(t, next.Messages, 1)
}

func TestEarlierSnapshotsAreNotMutated(t *testing.T) {
	s := NewStore(Initial("gpt-4o"))
	_, err := s.Dispatch(AppendMessage{Message: NewMessage(RoleUser, "one", ModeChat)})
	require.NoError(t, err)

	before := s.Snapshot()
	_, err = s.Dispatch(AppendMessage{Message: NewMessage(RoleUser, "two", ModeChat)})
	require.NoError(t, err)

	assert.Len(t, before.Messages, 1)
	assert.Len(t, s.Snapshot().Messages, 2)
}

func TestAttachments(t *testing.T) {
	s := NewStore(Initial("gpt-4o"))

	_, err := s.Dispatch(
		AddAttachment{Attachment: Attachment{Name: "beat-sheet.pdf"}},
		AddAttachment{Attachment: Attachment{Name: "beat-sheet.pdf"}},
		AddAttachment{Attachment: Attachment{Name: "moodboard.png"}},
	)
	require.NoError(t, err)
	next, err := s.Dispatch(RemoveAttachment{AttachmentName: "beat-sheet.pdf"})
	require.NoError(t, err)

	assert.Equal(t, []Attachment{{Name: "moodboard.png"}}, next.Attachments)
}

func TestSelectionContextValidation(t *testing.T) {
	tests := []struct {
		name   string
		action SetSelectionContext
	}{
		{name: "empty text", action: SetSelectionContext{Range: &Range{Start: 0, End: 4}}},
		{name: "inverted range", action: SetSelectionContext{Text: "FADE IN:", Range: &Range{Start: 8, End: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(Initial("gpt-4o"))
			_, err := s.Dispatch(tt.action)
			assert.ErrorIs(t, err, ErrInvalidAction)
			assert.Nil(t, s.Snapshot().SelectedTextContext)
		})
	}
}

func TestRejectedBatchLeavesStateUntouched(t *testing.T) {
	s := NewStore(Initial("gpt-4o"))
	notified := 0
	s.Subscribe(func(State, State, []Action) { notified++ })

	_, err := s.Dispatch(
		SetInput{Text: "half applied"},
		SetWorkflow{Workflow: &ActiveWorkflow{Kind: EntityCharacter}},
	)

	require.ErrorIs(t, err, ErrInvariant)
	assert.Equal(t, "", s.Snapshot().Input)
	assert.Zero(t, notified)
}

func TestUpdatePlanError(t *testing.T) {
	s := NewStore(Initial("gpt-4o"))
	boom := errors.New("boom")

	_, err := s.Update(func(State) ([]Action, error) { return nil, boom })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(0), s.Snapshot().Version)
}

func TestUnsubscribe(t *testing.T) {
	s := NewStore(Initial("gpt-4o"))
	calls := 0
	unsubscribe := s.Subscribe(func(State, State, []Action) { calls++ })

	_, _ = s.Dispatch(SetInput{Text: "a"})
	unsubscribe()
	unsubscribe()
	_, _ = s.Dispatch(SetInput{Text: "b"})

	assert.Equal(t, 1, calls)
}

func TestConcurrentDispatchSerializes(t *testing.T) {
	s := NewStore(Initial("gpt-4o"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Dispatch(AppendMessage{Message: NewMessage(RoleUser, "x", ModeChat)})
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap.Messages, 50)
	assert.Equal(t, uint64(50), snap.Version)
}
