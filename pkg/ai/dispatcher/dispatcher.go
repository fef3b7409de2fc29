// Package dispatcher owns the active mode of one conversation surface. It turns
// launch triggers into a single ordered batch of store actions, routes sends to
// the active panel or the running interview, and folds streamed replies into
// the transcript.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ai-screenwriting-be/internal/pkg/logger"
	"ai-screenwriting-be/pkg/ai/router"
	"ai-screenwriting-be/pkg/ai/workflow"
	"ai-screenwriting-be/pkg/metrics"
	"ai-screenwriting-be/pkg/store"

	"github.com/google/uuid"
)

const logModule = "Dispatcher"

var ErrNoInsertTarget = errors.New("no insert target registered")

type Dispatcher struct {
	store    *store.Store
	router   *router.Router
	workflow *workflow.Engine
	hooks    Hooks
	logger   logger.ILogger
	metrics  metrics.Recorder

	// triggerMu makes a second trigger wait until the first one has committed
	// and emitted its effects.
	triggerMu sync.Mutex

	deliverMu sync.Mutex
	delivered map[uuid.UUID]bool
}

func New(
	st *store.Store,
	r *router.Router,
	wf *workflow.Engine,
	hooks Hooks,
	log logger.ILogger,
	rec metrics.Recorder,
) *Dispatcher {
	if rec == nil {
		rec = metrics.Nop()
	}
	return &Dispatcher{
		store:     st,
		router:    r,
		workflow:  wf,
		hooks:     hooks,
		logger:    log,
		metrics:   rec,
		delivered: make(map[uuid.UUID]bool),
	}
}

func (d *Dispatcher) Store() *store.Store {
	return d.store
}

func (d *Dispatcher) Workflow() *workflow.Engine {
	return d.workflow
}

// Mount runs the opening effects in priority order, committing them as one batch:
// interview start, then the explicit initial mode, then the prompt prefill, then
// the selection. An interview start suppresses the initial mode and prefill.
func (d *Dispatcher) Mount(ctx context.Context, opts MountOptions) (store.State, error) {
	return d.trigger(ctx, opts)
}

// Launch applies an external trigger to an already mounted surface.
func (d *Dispatcher) Launch(ctx context.Context, t LaunchTrigger) (store.State, error) {
	return d.trigger(ctx, MountOptions{Trigger: &t})
}

func (d *Dispatcher) trigger(ctx context.Context, opts MountOptions) (store.State, error) {
	d.triggerMu.Lock()
	defer d.triggerMu.Unlock()

	if err := ctx.Err(); err != nil {
		return d.store.Snapshot(), err
	}

	var (
		prefilled bool
		before    store.State
	)
	next, err := d.store.Update(func(current store.State) ([]store.Action, error) {
		before = current
		actions, filled, err := d.plan(current, opts)
		prefilled = filled
		return actions, err
	})
	if err != nil {
		d.logger.Warn(logModule, "Trigger rejected", map[string]interface{}{
			"source": opts.source(),
			"error":  err.Error(),
		})
		return next, err
	}

	d.metrics.IncTrigger(opts.source())
	if next.ActiveMode != before.ActiveMode {
		d.metrics.IncModeSwitch(string(before.ActiveMode), string(next.ActiveMode))
	}
	d.noteInterviewDropped(before, next, opts.source())
	d.logger.Info(logModule, "Trigger applied", map[string]interface{}{
		"source":   opts.source(),
		"mode":     next.ActiveMode,
		"workflow": next.WorkflowRunning(),
	})

	if prefilled {
		d.emit(Effect{Kind: EffectScroll})
	}
	return next, nil
}

// plan builds the batch for one trigger against the current state.
func (d *Dispatcher) plan(current store.State, opts MountOptions) ([]store.Action, bool, error) {
	var actions []store.Action
	mode := current.ActiveMode
	setMode := func(m store.AgentMode) {
		actions = append(actions, store.SetMode{Mode: m})
		mode = m
	}

	explicitMode := opts.InitialMode != ""
	if explicitMode && !opts.InitialMode.Valid() {
		return nil, false, fmt.Errorf("%w: unknown initial mode %q", ErrInvalidTrigger, opts.InitialMode)
	}
	t := opts.Trigger
	if t != nil && t.Mode != "" && !t.Mode.Valid() {
		return nil, false, fmt.Errorf("%w: unknown mode %q", ErrInvalidTrigger, t.Mode)
	}
	startsWorkflow := t.StartsWorkflow()
	replacesBanner := false

	// 1. external trigger
	if t != nil {
		if t.SceneContext != nil {
			actions = append(actions, store.SetSceneContext{Scene: *t.SceneContext})
		}
		switch {
		case startsWorkflow:
			// Interviews always run in chat, whatever mode the trigger named.
			start, err := d.workflow.StartActions(*t.EntityContext)
			if err != nil {
				return nil, false, err
			}
			setMode(store.ModeChat)
			actions = append(actions, start...)
		default:
			if t.EntityContext != nil && !t.EntityContext.Type.Valid() {
				return nil, false, fmt.Errorf("%w: %q", workflow.ErrUnknownEntityType, t.EntityContext.Type)
			}
			if t.Mode != "" {
				setMode(t.Mode)
			}
			if t.EntityContext != nil {
				actions = append(actions, store.SetEntityBanner{Banner: *t.EntityContext})
				replacesBanner = true
			}
		}
	}

	// 2. initial mode, once per mount
	if explicitMode && !startsWorkflow {
		setMode(opts.InitialMode)
	}

	// 3. prompt prefill, never sent automatically
	prefilled := false
	if p := opts.prompt(); p != "" && !startsWorkflow {
		actions = append(actions, store.SetInput{Text: p})
		prefilled = true
	}

	// 4. selection context: rewrites are chat requests
	if text, rng := opts.selection(); text != "" {
		actions = append(actions,
			store.SetSelectionContext{Text: text, Range: rng},
			store.SetWasInRewriteMode{Value: true},
		)
		if mode != store.ModeChat && !explicitMode {
			setMode(store.ModeChat)
		}
	}

	// A running interview only lives in chat under its own banner. Leaving chat
	// or showing another entity ends it, ahead of the rest of the batch.
	if current.WorkflowRunning() && !startsWorkflow && (mode != store.ModeChat || replacesBanner) {
		actions = append(d.workflow.Planner().Cancel(), actions...)
	}

	return actions, prefilled, nil
}

// SwitchMode is the user picking a mode from the mode menu. Leaving chat
// cancels a running interview in the same batch.
func (d *Dispatcher) SwitchMode(mode store.AgentMode) (store.State, error) {
	var before store.State
	next, err := d.store.Update(func(current store.State) ([]store.Action, error) {
		before = current
		actions := []store.Action{store.SetMode{Mode: mode}}
		if mode != store.ModeChat && current.WorkflowRunning() {
			actions = append(d.workflow.Planner().Cancel(), actions...)
		}
		return actions, nil
	})
	if err != nil {
		return next, err
	}
	if before.ActiveMode != mode {
		d.metrics.IncModeSwitch(string(before.ActiveMode), string(mode))
	}
	d.noteInterviewDropped(before, next, "mode_switch")
	return next, nil
}

// noteInterviewDropped records an interview that a trigger or mode switch ended.
func (d *Dispatcher) noteInterviewDropped(before, after store.State, cause string) {
	if before.ActiveWorkflow == nil || after.ActiveWorkflow != nil || after.WorkflowCompletionData != nil {
		return
	}
	kind := string(before.ActiveWorkflow.Kind)
	d.metrics.IncWorkflowEvent(kind, "cancelled")
	d.logger.Info(logModule, "Interview cancelled", map[string]interface{}{
		"entity_type": kind,
		"cause":       cause,
	})
}

// CancelWorkflow is the explicit user exit from an interview.
func (d *Dispatcher) CancelWorkflow() (store.State, error) {
	if err := d.workflow.Cancel(); err != nil {
		return d.store.Snapshot(), err
	}
	return d.store.Snapshot(), nil
}

// CloseBanner closes the entity banner, cancelling any interview it belongs to.
func (d *Dispatcher) CloseBanner() (store.State, error) {
	if d.store.Snapshot().WorkflowRunning() {
		return d.CancelWorkflow()
	}
	return d.store.Dispatch(store.ClearEntityBanner{})
}

// CompleteWorkflow is called by the completion consumer once it has handled the payload.
func (d *Dispatcher) CompleteWorkflow(id uuid.UUID) (store.State, error) {
	return d.store.Update(func(current store.State) ([]store.Action, error) {
		c := current.WorkflowCompletionData
		if c == nil || c.ID != id {
			return nil, nil
		}
		return []store.Action{store.ClearWorkflow{}}, nil
	})
}

// Insert hands accepted text back to the host editor.
func (d *Dispatcher) Insert(text string) error {
	if text == "" {
		return nil
	}
	if d.hooks.OnInsert == nil {
		return ErrNoInsertTarget
	}
	d.hooks.OnInsert(text)
	d.emit(Effect{Kind: EffectInsert, Text: text})
	return nil
}

func (d *Dispatcher) emit(e Effect) {
	if d.hooks.OnEffect != nil {
		d.hooks.OnEffect(e)
	}
}

// deliverCompletion calls OnWorkflowComplete at most once per completion ID.
func (d *Dispatcher) deliverCompletion(c store.WorkflowCompletion) {
	if d.hooks.OnWorkflowComplete == nil {
		return
	}
	d.deliverMu.Lock()
	if d.delivered[c.ID] {
		d.deliverMu.Unlock()
		return
	}
	d.delivered[c.ID] = true
	d.deliverMu.Unlock()

	d.hooks.OnWorkflowComplete(c)
}
