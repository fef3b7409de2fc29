// Package pipeline holds the mode panels. Each panel reads the session state it
// is given and calls exactly one generation collaborator; none of them switch modes.
package pipeline

import (
	"context"
	"errors"

	"ai-screenwriting-be/pkg/ai/prompt"
	"ai-screenwriting-be/pkg/llm"
	"ai-screenwriting-be/pkg/store"
)

const logModule = "Panel"

var ErrNothingToVisualize = errors.New("no scene to visualize: select a scene or describe one")

// Request is what the dispatcher hands a panel for one send.
type Request struct {
	Prompt         string
	State          store.State
	EditorContent  string
	CursorPosition int
	Model          string
}

func (r Request) promptInput(mode store.AgentMode) prompt.Input {
	return prompt.Input{
		Mode:           mode,
		Prompt:         r.Prompt,
		State:          r.State,
		EditorContent:  r.EditorContent,
		CursorPosition: r.CursorPosition,
	}
}

// Panel produces the reply for one mode as a stream of chunks.
type Panel interface {
	Mode() store.AgentMode
	Generate(ctx context.Context, req Request) (<-chan llm.StreamChunk, error)
}
