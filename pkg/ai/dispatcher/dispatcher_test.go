package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ai-screenwriting-be/internal/pkg/logger"
	"ai-screenwriting-be/pkg/ai/pipeline"
	"ai-screenwriting-be/pkg/ai/router"
	"ai-screenwriting-be/pkg/ai/workflow"
	"ai-screenwriting-be/pkg/llm"
	"ai-screenwriting-be/pkg/metrics"
	"ai-screenwriting-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakePanel replies with fixed chunks unless generate is set.
type fakePanel struct {
	mode     store.AgentMode
	chunks   []string
	generate func(ctx context.Context, req pipeline.Request) (<-chan llm.StreamChunk, error)

	mu       sync.Mutex
	requests []pipeline.Request
}

func (p *fakePanel) Mode() store.AgentMode { return p.mode }

func (p *fakePanel) Generate(ctx context.Context, req pipeline.Request) (<-chan llm.StreamChunk, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.generate != nil {
		return p.generate(ctx, req)
	}
	ch := make(chan llm.StreamChunk, len(p.chunks)+1)
	for _, c := range p.chunks {
		ch <- llm.StreamChunk{Content: c}
	}
	ch <- llm.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

type harness struct {
	d       *Dispatcher
	store   *store.Store
	panels  map[store.AgentMode]*fakePanel
	effects []Effect
	inserts []string

	mu          sync.Mutex
	completions []store.WorkflowCompletion
}

func newHarness(t *testing.T, initial store.State) *harness {
	t.Helper()
	h := &harness{store: store.NewStore(initial), panels: map[store.AgentMode]*fakePanel{}}
	for _, m := range store.Modes {
		h.panels[m] = &fakePanel{mode: m, chunks: []string{"reply from ", string(m)}}
	}
	r, err := router.New(router.Panels{
		Chat:            h.panels[store.ModeChat],
		Director:        h.panels[store.ModeDirector],
		Image:           h.panels[store.ModeImage],
		QuickVideo:      h.panels[store.ModeQuickVideo],
		SceneVisualizer: h.panels[store.ModeSceneVisualizer],
		Dialogue:        h.panels[store.ModeDialogue],
	})
	require.NoError(t, err)

	wf := workflow.NewEngine(workflow.NewPlanner(workflow.DefaultCatalog()), h.store, logger.Nop(), metrics.Nop())
	h.d = New(h.store, r, wf, Hooks{
		OnEffect: func(e Effect) { h.effects = append(h.effects, e) },
		OnInsert: func(text string) { h.inserts = append(h.inserts, text) },
		OnWorkflowComplete: func(c store.WorkflowCompletion) {
			h.mu.Lock()
			h.completions = append(h.completions, c)
			h.mu.Unlock()
		},
	}, logger.Nop(), metrics.Nop())
	return h
}

func (h *harness) send(t *testing.T, text string) SendOutcome {
	t.Helper()
	out, err := h.d.HandleSend(context.Background(), SendRequest{Text: text})
	require.NoError(t, err)
	return out
}

func TestLaunchWithInterviewForcesChat(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))
	_, err := h.store.Dispatch(store.SetMode{Mode: store.ModeImage})
	require.NoError(t, err)

	got, err := h.d.Launch(context.Background(), LaunchTrigger{
		Source:        SourceEntity,
		Mode:          store.ModeImage,
		SceneContext:  &store.SceneContext{Heading: "INT. LAB - NIGHT"},
		EntityContext: &store.EntityContextBanner{Type: store.EntityCharacter, Workflow: store.WorkflowInterview},
	})

	require.NoError(t, err)
	assert.Equal(t, store.ModeChat, got.ActiveMode)
	require.NotNil(t, got.ActiveWorkflow)
	assert.Equal(t, store.EntityCharacter, got.ActiveWorkflow.Kind)
	require.NotNil(t, got.EntityContextBanner)
	assert.Equal(t, store.EntityCharacter, got.EntityContextBanner.Type)
	assert.Equal(t, "INT. LAB - NIGHT", got.SceneContext.Heading)
}

func TestSelectionForcesChat(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))
	_, err := h.store.Dispatch(store.SetMode{Mode: store.ModeImage})
	require.NoError(t, err)

	got, err := h.d.Launch(context.Background(), LaunchTrigger{
		Source:         SourceContextMenu,
		SelectedText:   "INT. OFFICE - DAY",
		SelectionRange: &store.Range{Start: 120, End: 137},
	})

	require.NoError(t, err)
	assert.Equal(t, store.ModeChat, got.ActiveMode)
	require.NotNil(t, got.SelectedTextContext)
	assert.Equal(t, "INT. OFFICE - DAY", got.SelectedTextContext.Text)
	assert.Equal(t, &store.Range{Start: 120, End: 137}, got.SelectionRange())
	assert.True(t, got.WasInRewriteMode)
}

func TestMountPriority(t *testing.T) {
	tests := []struct {
		name          string
		opts          MountOptions
		wantMode      store.AgentMode
		wantInput     string
		wantWorkflow  bool
		wantSelection bool
		wantScroll    bool
	}{
		{
			name:      "initial mode applied",
			opts:      MountOptions{InitialMode: store.ModeSceneVisualizer},
			wantMode:  store.ModeSceneVisualizer,
			wantInput: "",
		},
		{
			name:       "prompt prefilled not sent",
			opts:       MountOptions{InitialPrompt: "Describe the villain"},
			wantMode:   store.ModeChat,
			wantInput:  "Describe the villain",
			wantScroll: true,
		},
		{
			name: "workflow wins over initial mode and prompt",
			opts: MountOptions{
				Trigger: &LaunchTrigger{
					Mode:          store.ModeDirector,
					EntityContext: &store.EntityContextBanner{Type: store.EntityScene, Workflow: store.WorkflowInterview},
				},
				InitialMode:   store.ModeDialogue,
				InitialPrompt: "ignored",
			},
			wantMode:     store.ModeChat,
			wantWorkflow: true,
		},
		{
			name:          "explicit initial mode keeps its mode with a selection",
			opts:          MountOptions{InitialMode: store.ModeDialogue, SelectedText: "TOM: Hi."},
			wantMode:      store.ModeDialogue,
			wantSelection: true,
		},
		{
			name:          "selection overrides trigger mode",
			opts:          MountOptions{Trigger: &LaunchTrigger{Mode: store.ModeDirector, SelectedText: "FADE OUT."}},
			wantMode:      store.ModeChat,
			wantSelection: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, store.Initial("llama3"))

			var commits int
			h.store.Subscribe(func(store.State, store.State, []store.Action) { commits++ })

			got, err := h.d.Mount(context.Background(), tt.opts)

			require.NoError(t, err)
			assert.Equal(t, 1, commits)
			assert.Equal(t, tt.wantMode, got.ActiveMode)
			assert.Equal(t, tt.wantInput, got.Input)
			assert.Equal(t, tt.wantWorkflow, got.WorkflowRunning())
			assert.Equal(t, tt.wantSelection, got.SelectedTextContext != nil)
			assert.Equal(t, tt.wantScroll, len(h.effects) == 1 && h.effects[0].Kind == EffectScroll)
		})
	}
}

func TestUnknownEntityTypeFailsClosed(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))
	before := h.store.Snapshot()

	_, err := h.d.Launch(context.Background(), LaunchTrigger{
		Mode:          store.ModeImage,
		InitialPrompt: "hello",
		EntityContext: &store.EntityContextBanner{Type: "prop", Workflow: store.WorkflowInterview},
	})

	assert.ErrorIs(t, err, workflow.ErrUnknownEntityType)
	assert.Equal(t, before, h.store.Snapshot())
}

func TestInvalidTriggerMode(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))

	_, err := h.d.Launch(context.Background(), LaunchTrigger{Mode: "kanban"})
	assert.ErrorIs(t, err, ErrInvalidTrigger)

	_, err = h.d.Mount(context.Background(), MountOptions{InitialMode: "kanban"})
	assert.ErrorIs(t, err, ErrInvalidTrigger)
}

func TestConcurrentTriggersDoNotInterleave(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))

	var seen []store.State
	var mu sync.Mutex
	h.store.Subscribe(func(_, next store.State, _ []store.Action) {
		mu.Lock()
		seen = append(seen, next)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = h.d.Launch(context.Background(), LaunchTrigger{Mode: store.ModeDirector, SceneContext: &store.SceneContext{Heading: "A"}})
				return
			}
			_, _ = h.d.Launch(context.Background(), LaunchTrigger{SelectedText: "B"})
		}()
	}
	wg.Wait()

	require.Len(t, seen, 20)
	for _, s := range seen {
		// A selection trigger always lands in chat; a director trigger never leaves a
		// director state without its scene.
		if s.ActiveMode == store.ModeDirector {
			require.NotNil(t, s.SceneContext)
			assert.Equal(t, "A", s.SceneContext.Heading)
		}
	}
}

func TestHandleSendAppendsAndClearsInput(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))
	_, err := h.store.Dispatch(store.SetInput{Text: "Hello"})
	require.NoError(t, err)

	out := h.send(t, "Hello")

	assert.Equal(t, SendAccepted, out)
	s := h.store.Snapshot()
	require.Len(t, s.Messages, 2)
	assert.Equal(t, store.RoleUser, s.Messages[0].Role)
	assert.Equal(t, "Hello", s.Messages[0].Content)
	assert.Equal(t, store.ModeChat, s.Messages[0].Mode)
	assert.Equal(t, "", s.Input)
	assert.Equal(t, store.RoleAssistant, s.Messages[1].Role)
	assert.Equal(t, "reply from chat", s.Messages[1].Content)
	assert.False(t, s.IsStreaming)
	assert.Equal(t, "", s.StreamingText)
}

func TestHandleSendIgnoresEmpty(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))

	for _, text := range []string{"", "   ", "\n\t"} {
		assert.Equal(t, SendIgnoredEmpty, h.send(t, text))
	}
	assert.Empty(t, h.store.Snapshot().Messages)
	assert.Equal(t, uint64(0), h.store.Snapshot().Version)
}

func TestHandleSendRejectedWhileStreaming(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))
	_, err := h.store.Dispatch(store.SetStreaming{Streaming: true, Text: "partial"})
	require.NoError(t, err)
	before := h.store.Snapshot()

	out := h.send(t, "Another question")

	assert.Equal(t, SendRejectedBusy, out)
	assert.Equal(t, before.Messages, h.store.Snapshot().Messages)
	assert.Equal(t, before.Version, h.store.Snapshot().Version)
}

func TestStreamingAccumulatesIntoOneMessage(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))
	h.panels[store.ModeChat].chunks = []string{"INT. ", "OFFICE", " - DAY"}

	var buffers []string
	h.store.Subscribe(func(_, next store.State, _ []store.Action) {
		if next.IsStreaming {
			buffers = append(buffers, next.StreamingText)
		}
	})

	h.send(t, "Heading please")

	assert.Equal(t, []string{"", "INT. ", "INT. OFFICE", "INT. OFFICE - DAY"}, buffers)
	s := h.store.Snapshot()
	require.Len(t, s.Messages, 2)
	assert.Equal(t, "INT. OFFICE - DAY", s.Messages[1].Content)
}

func TestSecondSendDuringStreamIsDropped(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))
	release := make(chan struct{})
	streaming := make(chan struct{})
	h.panels[store.ModeChat].generate = func(ctx context.Context, req pipeline.Request) (<-chan llm.StreamChunk, error) {
		ch := make(chan llm.StreamChunk)
		go func() {
			defer close(ch)
			if !llm.Send(ctx, ch, llm.StreamChunk{Content: "first"}) {
				return
			}
			close(streaming)
			<-release
			llm.Send(ctx, ch, llm.StreamChunk{Done: true})
		}()
		return ch, nil
	}

	done := make(chan SendOutcome)
	go func() {
		out, _ := h.d.HandleSend(context.Background(), SendRequest{Text: "one"})
		done <- out
	}()
	<-streaming

	assert.Equal(t, SendRejectedBusy, h.send(t, "two"))
	assert.Len(t, h.store.Snapshot().Messages, 1)

	close(release)
	assert.Equal(t, SendAccepted, <-done)
	assert.Len(t, h.store.Snapshot().Messages, 2)
}

func TestCollaboratorFailure(t *testing.T) {
	tests := []struct {
		name     string
		generate func(ctx context.Context, req pipeline.Request) (<-chan llm.StreamChunk, error)
	}{
		{
			name: "generate returns error",
			generate: func(context.Context, pipeline.Request) (<-chan llm.StreamChunk, error) {
				return nil, errors.New("backend unavailable")
			},
		},
		{
			name: "error chunk mid-stream",
			generate: func(context.Context, pipeline.Request) (<-chan llm.StreamChunk, error) {
				ch := make(chan llm.StreamChunk, 2)
				ch <- llm.StreamChunk{Content: "partial"}
				ch <- llm.StreamChunk{Error: errors.New("connection reset")}
				close(ch)
				return ch, nil
			},
		},
		{
			name: "panel panics",
			generate: func(context.Context, pipeline.Request) (<-chan llm.StreamChunk, error) {
				panic("nil model")
			},
		},
		{
			name: "empty reply",
			generate: func(context.Context, pipeline.Request) (<-chan llm.StreamChunk, error) {
				ch := make(chan llm.StreamChunk)
				close(ch)
				return ch, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, store.Initial("llama3"))
			h.panels[store.ModeChat].generate = tt.generate

			assert.Equal(t, SendAccepted, h.send(t, "Hello"))

			s := h.store.Snapshot()
			assert.False(t, s.IsStreaming)
			assert.Equal(t, "", s.StreamingText)
			require.Len(t, s.Messages, 2)
			assert.Equal(t, store.RoleAssistant, s.Messages[1].Role)
			assert.Contains(t, s.Messages[1].Content, "request failed")
		})
	}
}

func TestContextCancelledMidStream(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))
	release := make(chan struct{})
	h.panels[store.ModeChat].generate = func(ctx context.Context, req pipeline.Request) (<-chan llm.StreamChunk, error) {
		ch := make(chan llm.StreamChunk)
		go func() {
			defer close(ch)
			llm.Send(ctx, ch, llm.StreamChunk{Content: "slow"})
			<-release
		}()
		return ch, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.store.Subscribe(func(_, next store.State, _ []store.Action) {
		if next.StreamingText == "slow" {
			cancel()
		}
	})

	out, err := h.d.HandleSend(ctx, SendRequest{Text: "Hello"})
	close(release)

	require.NoError(t, err)
	assert.Equal(t, SendAccepted, out)
	s := h.store.Snapshot()
	assert.False(t, s.IsStreaming)
	require.Len(t, s.Messages, 2)
	assert.Contains(t, s.Messages[1].Content, context.Canceled.Error())
}

func TestSendUsesActivePanelAndPrefix(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))
	_, err := h.d.SwitchMode(store.ModeDirector)
	require.NoError(t, err)

	h.send(t, "Open on the harbor")
	h.send(t, "/dialogue Tom apologizes")
	h.send(t, "/image")

	s := h.store.Snapshot()
	assert.Equal(t, store.ModeDirector, s.ActiveMode)
	require.Len(t, s.Messages, 6)
	assert.Equal(t, store.ModeDirector, s.Messages[0].Mode)
	assert.Equal(t, "reply from director", s.Messages[1].Content)
	assert.Equal(t, store.ModeDialogue, s.Messages[2].Mode)
	assert.Equal(t, "reply from dialogue", s.Messages[3].Content)
	assert.Equal(t, router.HelpMessage(store.ModeImage), s.Messages[5].Content)

	require.Len(t, h.panels[store.ModeDialogue].requests, 1)
	assert.Equal(t, "Tom apologizes", h.panels[store.ModeDialogue].requests[0].Prompt)
	assert.Empty(t, h.panels[store.ModeImage].requests)
}

func TestInterviewCompletionDeliveredOnce(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))
	_, err := h.d.Launch(context.Background(), LaunchTrigger{
		EntityContext: &store.EntityContextBanner{Type: store.EntityLocation, Workflow: store.WorkflowInterview},
	})
	require.NoError(t, err)

	for _, answer := range []string{"The Docks", "exterior", "Salt and rust"} {
		require.Equal(t, SendAccepted, h.send(t, answer))
		assert.False(t, h.store.Snapshot().IsStreaming)
	}

	s := h.store.Snapshot()
	assert.Nil(t, s.ActiveWorkflow)
	require.NotNil(t, s.WorkflowCompletionData)
	require.Len(t, h.completions, 1)
	assert.Equal(t, s.WorkflowCompletionData.ID, h.completions[0].ID)
	assert.Equal(t, "exterior", h.completions[0].Answers["setting"])

	// The panel never saw the answers.
	assert.Empty(t, h.panels[store.ModeChat].requests)

	// A later send must not redeliver the same completion.
	h.d.deliverCompletion(*h.store.Snapshot().WorkflowCompletionData)
	assert.Len(t, h.completions, 1)

	_, err = h.d.CompleteWorkflow(h.completions[0].ID)
	require.NoError(t, err)
	s = h.store.Snapshot()
	assert.Nil(t, s.WorkflowCompletionData)
	assert.Nil(t, s.EntityContextBanner)
	assert.Equal(t, store.DefaultPlaceholder, s.Placeholder)
}

func TestInterviewRepromptsInvalidAnswer(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))
	_, err := h.d.Launch(context.Background(), LaunchTrigger{
		EntityContext: &store.EntityContextBanner{Type: store.EntityLocation, Workflow: store.WorkflowInterview},
	})
	require.NoError(t, err)

	h.send(t, "The Docks")
	h.send(t, "underwater")

	s := h.store.Snapshot()
	require.NotNil(t, s.ActiveWorkflow)
	assert.Equal(t, 1, s.ActiveWorkflow.StepIndex)
	assert.Contains(t, s.Messages[len(s.Messages)-1].Content, "Is it interior, exterior, or both?")
	assert.Empty(t, h.completions)
}

func TestCloseBannerCancelsInterview(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))
	_, err := h.d.Launch(context.Background(), LaunchTrigger{
		EntityContext: &store.EntityContextBanner{Type: store.EntityCharacter, Workflow: store.WorkflowInterview},
	})
	require.NoError(t, err)

	got, err := h.d.CloseBanner()

	require.NoError(t, err)
	assert.Nil(t, got.ActiveWorkflow)
	assert.Nil(t, got.EntityContextBanner)
	assert.Equal(t, store.DefaultPlaceholder, got.Placeholder)

	h.send(t, "Just chatting now")
	assert.Len(t, h.panels[store.ModeChat].requests, 1)
}

func TestInterviewSurvivesOnlyInChat(t *testing.T) {
	tests := []struct {
		name          string
		act           func(d *Dispatcher) (store.State, error)
		wantErr       error
		wantMode      store.AgentMode
		wantRunning   bool
		wantBanner    store.EntityType
		wantPanelSend store.AgentMode
	}{
		{
			name:          "switching away from chat",
			act:           func(d *Dispatcher) (store.State, error) { return d.SwitchMode(store.ModeImage) },
			wantMode:      store.ModeImage,
			wantPanelSend: store.ModeImage,
		},
		{
			name:        "switching to chat",
			act:         func(d *Dispatcher) (store.State, error) { return d.SwitchMode(store.ModeChat) },
			wantMode:    store.ModeChat,
			wantRunning: true,
			wantBanner:  store.EntityCharacter,
		},
		{
			name: "launching another mode",
			act: func(d *Dispatcher) (store.State, error) {
				return d.Launch(context.Background(), LaunchTrigger{Source: SourceButton, Mode: store.ModeDirector})
			},
			wantMode:      store.ModeDirector,
			wantPanelSend: store.ModeDirector,
		},
		{
			name: "showing another entity",
			act: func(d *Dispatcher) (store.State, error) {
				return d.Launch(context.Background(), LaunchTrigger{
					Source:        SourceEntity,
					EntityContext: &store.EntityContextBanner{Type: store.EntityLocation, Seed: map[string]string{"name": "The Docks"}},
				})
			},
			wantMode:      store.ModeChat,
			wantBanner:    store.EntityLocation,
			wantPanelSend: store.ModeChat,
		},
		{
			name: "prefilling chat",
			act: func(d *Dispatcher) (store.State, error) {
				return d.Launch(context.Background(), LaunchTrigger{InitialPrompt: "Tom, 40s"})
			},
			wantMode:    store.ModeChat,
			wantRunning: true,
			wantBanner:  store.EntityCharacter,
		},
		{
			name: "unknown banner type",
			act: func(d *Dispatcher) (store.State, error) {
				return d.Launch(context.Background(), LaunchTrigger{
					Mode:          store.ModeImage,
					EntityContext: &store.EntityContextBanner{Type: "spaceship"},
				})
			},
			wantErr:     workflow.ErrUnknownEntityType,
			wantMode:    store.ModeChat,
			wantRunning: true,
			wantBanner:  store.EntityCharacter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, store.Initial("llama3"))
			started, err := h.d.Launch(context.Background(), LaunchTrigger{
				EntityContext: &store.EntityContextBanner{Type: store.EntityCharacter, Workflow: store.WorkflowInterview},
			})
			require.NoError(t, err)

			_, err = tt.act(h.d)

			s := h.store.Snapshot()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, started.Version, s.Version)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantMode, s.ActiveMode)
			assert.Equal(t, tt.wantRunning, s.WorkflowRunning())
			if tt.wantBanner == "" {
				assert.Nil(t, s.EntityContextBanner)
			} else {
				require.NotNil(t, s.EntityContextBanner)
				assert.Equal(t, tt.wantBanner, s.EntityContextBanner.Type)
			}
			if s.ActiveWorkflow != nil {
				assert.Equal(t, s.EntityContextBanner.Type, s.ActiveWorkflow.Kind)
			}

			require.Equal(t, SendAccepted, h.send(t, "Tom"))
			if tt.wantPanelSend == "" {
				assert.Empty(t, h.panels[s.ActiveMode].requests)
				return
			}
			require.Len(t, h.panels[tt.wantPanelSend].requests, 1)
			assert.Equal(t, "Tom", h.panels[tt.wantPanelSend].requests[0].Prompt)
			assert.Empty(t, h.completions)
		})
	}
}

func TestCompleteWorkflowIgnoresStaleID(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))

	before := h.store.Snapshot()
	got, err := h.d.CompleteWorkflow(uuid.New())

	require.NoError(t, err)
	assert.Equal(t, before.Version, got.Version)
}

func TestInsert(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))

	require.NoError(t, h.d.Insert("TOM\nSorry."))
	require.NoError(t, h.d.Insert(""))

	assert.Equal(t, []string{"TOM\nSorry."}, h.inserts)
	assert.Equal(t, []Effect{{Kind: EffectInsert, Text: "TOM\nSorry."}}, h.effects)

	bare := New(h.store, nil, nil, Hooks{}, logger.Nop(), nil)
	assert.ErrorIs(t, bare.Insert("x"), ErrNoInsertTarget)
}

func TestSendOutcomeReportedBeforeReply(t *testing.T) {
	h := newHarness(t, store.Initial("llama3"))
	var messagesAtDecision int
	var outcomes []SendOutcome

	out, err := h.d.HandleSend(context.Background(), SendRequest{
		Text: "Hello",
		OnOutcome: func(o SendOutcome) {
			outcomes = append(outcomes, o)
			messagesAtDecision = len(h.store.Snapshot().Messages)
		},
	})

	require.NoError(t, err)
	assert.Equal(t, SendAccepted, out)
	assert.Equal(t, []SendOutcome{SendAccepted}, outcomes)
	assert.Equal(t, 1, messagesAtDecision)
	assert.Len(t, h.store.Snapshot().Messages, 2)

	outcomes = nil
	_, err = h.d.HandleSend(context.Background(), SendRequest{Text: " ", OnOutcome: func(o SendOutcome) { outcomes = append(outcomes, o) }})
	require.NoError(t, err)
	assert.Equal(t, []SendOutcome{SendIgnoredEmpty}, outcomes)
}
