package workflow

import (
	"errors"

	"ai-screenwriting-be/internal/pkg/logger"
	"ai-screenwriting-be/pkg/metrics"
	"ai-screenwriting-be/pkg/store"
)

const logModule = "Workflow"

// Engine applies interview plans to one session store.
type Engine struct {
	planner *Planner
	store   *store.Store
	log     logger.ILogger
	metrics metrics.Recorder
}

func NewEngine(planner *Planner, st *store.Store, log logger.ILogger, rec metrics.Recorder) *Engine {
	if rec == nil {
		rec = metrics.Nop()
	}
	return &Engine{planner: planner, store: st, log: log, metrics: rec}
}

// Start begins an interview. An unknown entity type leaves the state untouched.
func (e *Engine) Start(banner store.EntityContextBanner) error {
	actions, err := e.StartActions(banner)
	if err != nil {
		return err
	}
	_, err = e.store.Dispatch(actions...)
	return err
}

// StartActions plans a start without committing it, so a caller can fold it into a larger batch.
func (e *Engine) StartActions(banner store.EntityContextBanner) ([]store.Action, error) {
	actions, err := e.planner.Start(banner)
	if err != nil {
		e.log.Warn(logModule, "Refusing to start interview", map[string]interface{}{
			"entity_type": banner.Type,
			"error":       err.Error(),
		})
		return nil, err
	}
	e.log.Info(logModule, "Interview started", map[string]interface{}{"entity_type": banner.Type})
	e.metrics.IncWorkflowEvent(string(banner.Type), "started")
	return actions, nil
}

// Answer feeds answer to the running interview and commits the transition
// together with extra in one batch.
func (e *Engine) Answer(answer string, extra ...store.Action) (Transition, error) {
	var tr Transition
	_, err := e.store.Update(func(current store.State) ([]store.Action, error) {
		var err error
		tr, err = e.planner.Answer(current, answer)
		if err != nil {
			return nil, err
		}
		return append(tr.Actions, extra...), nil
	})
	if err != nil {
		if !errors.Is(err, ErrNoWorkflow) {
			e.log.Error(logModule, "Failed to apply answer", map[string]interface{}{"error": err.Error()})
		}
		return Transition{}, err
	}

	kind := ""
	if tr.Completion != nil {
		kind = string(tr.Completion.Kind)
	} else if wf := e.store.Snapshot().ActiveWorkflow; wf != nil {
		kind = string(wf.Kind)
	}
	switch {
	case tr.Reprompted:
		e.metrics.IncWorkflowEvent(kind, "reprompted")
	case tr.Completed():
		e.metrics.IncWorkflowEvent(kind, "completed")
		e.log.Info(logModule, "Interview completed", map[string]interface{}{
			"entity_type":   kind,
			"completion_id": tr.Completion.ID.String(),
		})
	default:
		e.metrics.IncWorkflowEvent(kind, "answered")
	}
	return tr, nil
}

// Cancel ends the running interview and discards its answers.
func (e *Engine) Cancel() error {
	before := e.store.Snapshot()
	if _, err := e.store.Dispatch(e.planner.Cancel()...); err != nil {
		return err
	}
	if before.ActiveWorkflow != nil {
		e.metrics.IncWorkflowEvent(string(before.ActiveWorkflow.Kind), "cancelled")
		e.log.Info(logModule, "Interview cancelled", map[string]interface{}{"entity_type": before.ActiveWorkflow.Kind})
	}
	return nil
}

// Clear is called by the completion consumer once the entity has been handled.
func (e *Engine) Clear() error {
	_, err := e.store.Dispatch(store.ClearWorkflow{})
	return err
}

func (e *Engine) Planner() *Planner {
	return e.planner
}
