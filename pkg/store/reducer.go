package store

import (
	"errors"
	"fmt"
)

// ErrInvariant is returned when a batch of actions would leave the state inconsistent.
// The batch is rejected as a whole and the previous state is kept.
var ErrInvariant = errors.New("state invariant violated")

// ErrInvalidAction is returned for an action whose payload can never be applied.
var ErrInvalidAction = errors.New("invalid action")

// Reduce applies actions in order to a copy of s and returns the next state.
// It is pure: s is never modified and the version is left untouched.
func Reduce(s State, actions ...Action) (State, error) {
	next := s
	for _, a := range actions {
		if a == nil {
			return s, fmt.Errorf("%w: nil action", ErrInvalidAction)
		}
		if err := check(a); err != nil {
			return s, err
		}
		a.apply(&next)
	}
	if err := Validate(next); err != nil {
		return s, err
	}
	return next, nil
}

func check(a Action) error {
	switch act := a.(type) {
	case SetMode:
		if !act.Mode.Valid() {
			return fmt.Errorf("%w: %s: unknown mode %q", ErrInvalidAction, a.Name(), act.Mode)
		}
	case SetSelectionContext:
		if act.Text == "" {
			return fmt.Errorf("%w: %s: empty selection", ErrInvalidAction, a.Name())
		}
		if act.Range != nil && act.Range.End < act.Range.Start {
			return fmt.Errorf("%w: %s: range end before start", ErrInvalidAction, a.Name())
		}
	case SetEntityBanner:
		if !act.Banner.Type.Valid() {
			return fmt.Errorf("%w: %s: unknown entity type %q", ErrInvalidAction, a.Name(), act.Banner.Type)
		}
	case SetMenu:
		switch act.Menu {
		case MenuMode, MenuModel, MenuAttach:
		default:
			return fmt.Errorf("%w: %s: unknown menu %q", ErrInvalidAction, a.Name(), act.Menu)
		}
	}
	return nil
}

// Validate reports the first invariant s breaks.
func Validate(s State) error {
	if !s.ActiveMode.Valid() {
		return fmt.Errorf("%w: active mode %q", ErrInvariant, s.ActiveMode)
	}
	if s.ActiveWorkflow != nil && s.EntityContextBanner == nil {
		return fmt.Errorf("%w: workflow running without entity banner", ErrInvariant)
	}
	if s.ActiveWorkflow != nil && s.EntityContextBanner.Type != s.ActiveWorkflow.Kind {
		return fmt.Errorf("%w: banner %q does not describe the %q workflow", ErrInvariant, s.EntityContextBanner.Type, s.ActiveWorkflow.Kind)
	}
	if s.ActiveWorkflow != nil && s.ActiveMode != ModeChat {
		return fmt.Errorf("%w: workflow running outside chat mode", ErrInvariant)
	}
	if s.ActiveWorkflow != nil && s.WorkflowCompletionData != nil {
		return fmt.Errorf("%w: workflow running with staged completion", ErrInvariant)
	}
	if s.SelectedTextContext != nil && s.SelectedTextContext.Text == "" {
		return fmt.Errorf("%w: selection range without selected text", ErrInvariant)
	}
	if !s.IsStreaming && s.StreamingText != "" {
		return fmt.Errorf("%w: streaming text outside a stream", ErrInvariant)
	}
	return nil
}
