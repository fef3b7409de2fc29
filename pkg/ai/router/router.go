package router

import (
	"errors"
	"fmt"

	"ai-screenwriting-be/pkg/ai/pipeline"
	"ai-screenwriting-be/pkg/store"
)

var (
	ErrMissingPanel = errors.New("no panel registered for mode")
	ErrUnknownMode  = errors.New("unknown mode")
)

// Panels has one field per mode so a missing panel is visible at construction.
type Panels struct {
	Chat            pipeline.Panel
	Director        pipeline.Panel
	Image           pipeline.Panel
	QuickVideo      pipeline.Panel
	SceneVisualizer pipeline.Panel
	Dialogue        pipeline.Panel
}

// Router maps the active mode to exactly one panel.
type Router struct {
	panels Panels
}

// New fails when any mode lacks a panel or a panel serves the wrong mode.
func New(panels Panels) (*Router, error) {
	r := &Router{panels: panels}
	for _, mode := range store.Modes {
		p, err := r.Panel(mode)
		if err != nil {
			return nil, err
		}
		if p.Mode() != mode {
			return nil, fmt.Errorf("panel for %s reports mode %s", mode, p.Mode())
		}
	}
	return r, nil
}

// Panel returns the panel for mode.
func (r *Router) Panel(mode store.AgentMode) (pipeline.Panel, error) {
	var p pipeline.Panel
	switch mode {
	case store.ModeChat:
		p = r.panels.Chat
	case store.ModeDirector:
		p = r.panels.Director
	case store.ModeImage:
		p = r.panels.Image
	case store.ModeQuickVideo:
		p = r.panels.QuickVideo
	case store.ModeSceneVisualizer:
		p = r.panels.SceneVisualizer
	case store.ModeDialogue:
		p = r.panels.Dialogue
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingPanel, mode)
	}
	return p, nil
}
