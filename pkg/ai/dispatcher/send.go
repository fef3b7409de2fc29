package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-screenwriting-be/pkg/ai/pipeline"
	"ai-screenwriting-be/pkg/ai/router"
	"ai-screenwriting-be/pkg/ai/workflow"
	"ai-screenwriting-be/pkg/store"
)

// SendOutcome says what HandleSend did with a message.
type SendOutcome string

const (
	SendAccepted      SendOutcome = "accepted"
	SendIgnoredEmpty  SendOutcome = "ignored_empty"
	SendRejectedBusy  SendOutcome = "rejected_busy"
	SendRejectedError SendOutcome = "rejected_error"
)

// SendRequest is one user message plus the editor state the panels may read.
type SendRequest struct {
	Text           string
	EditorContent  string
	CursorPosition int

	// OnOutcome, if set, is called once the send is accepted or declined,
	// before any reply is generated.
	OnOutcome func(SendOutcome)
}

// HandleSend appends the user message and produces the reply. It blocks until the
// reply is committed; collaborator failures end up in the transcript, not in the
// returned error. A send while a reply is streaming is dropped.
func (d *Dispatcher) HandleSend(ctx context.Context, req SendRequest) (SendOutcome, error) {
	decide := func(o SendOutcome) {
		if req.OnOutcome != nil {
			req.OnOutcome(o)
		}
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		d.metrics.ObserveSend(string(d.store.Snapshot().ActiveMode), string(SendIgnoredEmpty))
		decide(SendIgnoredEmpty)
		return SendIgnoredEmpty, nil
	}

	var (
		busy      bool
		answering bool
		parsed    *router.ParsedPrompt
		mode      store.AgentMode
	)
	started, err := d.store.Update(func(current store.State) ([]store.Action, error) {
		if current.IsStreaming {
			busy = true
			return nil, nil
		}
		answering = current.WorkflowRunning() && current.ActiveMode == store.ModeChat
		mode = current.ActiveMode
		parsed = &router.ParsedPrompt{OriginalPrompt: text, CleanPrompt: text}
		if !answering {
			parsed = router.Parse(text)
			if parsed.HasPrefix() {
				mode = parsed.Mode
			}
		}
		return []store.Action{
			store.AppendMessage{Message: store.NewMessage(store.RoleUser, text, mode)},
			store.SetInput{Text: ""},
			store.SetStreaming{Streaming: true},
		}, nil
	})
	if busy {
		d.metrics.ObserveSend(string(started.ActiveMode), string(SendRejectedBusy))
		decide(SendRejectedBusy)
		return SendRejectedBusy, nil
	}
	if err != nil {
		d.metrics.ObserveSend(string(started.ActiveMode), string(SendRejectedError))
		decide(SendRejectedError)
		return SendRejectedError, err
	}
	d.metrics.ObserveSend(string(mode), string(SendAccepted))
	decide(SendAccepted)
	d.emit(Effect{Kind: EffectScroll})

	switch {
	case answering:
		d.answer(ctx, text, req)
	case parsed.HasPrefix() && parsed.IsEmpty():
		d.finish(router.HelpMessage(mode), mode)
	default:
		d.generate(ctx, mode, started, parsed.CleanPrompt, req)
	}
	return SendAccepted, nil
}

func (d *Dispatcher) answer(ctx context.Context, text string, req SendRequest) {
	tr, err := d.workflow.Answer(text, store.SetStreaming{})
	if errors.Is(err, workflow.ErrNoWorkflow) {
		// Cancelled between the send and the answer; treat it as a normal chat send.
		d.generate(ctx, store.ModeChat, d.store.Snapshot(), text, req)
		return
	}
	if err != nil {
		d.fail(store.ModeChat, err)
		return
	}
	d.emit(Effect{Kind: EffectScroll})
	if tr.Completed() {
		d.deliverCompletion(*tr.Completion)
	}
}

func (d *Dispatcher) generate(ctx context.Context, mode store.AgentMode, snapshot store.State, prompt string, req SendRequest) {
	start := time.Now()
	content, err := d.stream(ctx, mode, pipeline.Request{
		Prompt:         prompt,
		State:          snapshot,
		EditorContent:  req.EditorContent,
		CursorPosition: req.CursorPosition,
		Model:          snapshot.Model,
	})
	if err != nil {
		d.metrics.ObserveGeneration(string(mode), "error", time.Since(start))
		d.fail(mode, err)
		return
	}
	d.metrics.ObserveGeneration(string(mode), "success", time.Since(start))
	d.finish(content, mode)
}

// stream runs the panel and accumulates its chunks into the streaming buffer.
// A panic in the panel is turned into an error.
func (d *Dispatcher) stream(ctx context.Context, mode store.AgentMode, req pipeline.Request) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panel panicked: %v", r)
		}
	}()

	panel, err := d.router.Panel(mode)
	if err != nil {
		return "", err
	}
	chunks, err := panel.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	var acc strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case chunk, ok := <-chunks:
			if !ok || chunk.Done {
				if acc.Len() == 0 {
					return "", errors.New("empty response")
				}
				return acc.String(), nil
			}
			if chunk.Error != nil {
				return "", chunk.Error
			}
			if chunk.Content == "" {
				continue
			}
			acc.WriteString(chunk.Content)
			if _, err := d.store.Dispatch(store.SetStreaming{Streaming: true, Text: acc.String()}); err != nil {
				return "", err
			}
		}
	}
}

// finish commits the reply and clears the streaming state in one batch.
func (d *Dispatcher) finish(content string, mode store.AgentMode) {
	_, err := d.store.Dispatch(
		store.AppendMessage{Message: store.NewMessage(store.RoleAssistant, content, mode)},
		store.SetStreaming{},
	)
	if err != nil {
		d.logger.Error(logModule, "Failed to commit reply", map[string]interface{}{"error": err.Error()})
		d.resetStreaming()
		return
	}
	d.emit(Effect{Kind: EffectScroll})
}

// fail records one assistant message describing err and clears the streaming state.
func (d *Dispatcher) fail(mode store.AgentMode, err error) {
	d.logger.Error(logModule, "Generation failed", map[string]interface{}{
		"mode":  mode,
		"error": err.Error(),
	})
	msg := fmt.Sprintf("Sorry, the %s request failed: %v", mode, err)
	if _, derr := d.store.Dispatch(
		store.AppendMessage{Message: store.NewMessage(store.RoleAssistant, msg, mode)},
		store.SetStreaming{},
	); derr != nil {
		d.logger.Error(logModule, "Failed to record failure", map[string]interface{}{"error": derr.Error()})
		d.resetStreaming()
		return
	}
	d.emit(Effect{Kind: EffectScroll})
}

func (d *Dispatcher) resetStreaming() {
	if _, err := d.store.Dispatch(store.SetStreaming{}); err != nil {
		d.logger.Error(logModule, "Failed to reset streaming", map[string]interface{}{"error": err.Error()})
	}
}
