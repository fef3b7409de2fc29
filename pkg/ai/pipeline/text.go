package pipeline

import (
	"context"

	"ai-screenwriting-be/internal/pkg/logger"
	"ai-screenwriting-be/pkg/ai/prompt"
	"ai-screenwriting-be/pkg/llm"
	"ai-screenwriting-be/pkg/store"
)

// TextPanel streams a reply from the text model. Chat, director and dialogue
// differ only in the system prompt the builder picks for their mode.
type TextPanel struct {
	mode        store.AgentMode
	llmProvider llm.LLMProvider
	builder     *prompt.Builder
	logger      logger.ILogger
}

func newTextPanel(mode store.AgentMode, llmProvider llm.LLMProvider, builder *prompt.Builder, log logger.ILogger) *TextPanel {
	return &TextPanel{mode: mode, llmProvider: llmProvider, builder: builder, logger: log}
}

func NewChatPanel(llmProvider llm.LLMProvider, builder *prompt.Builder, log logger.ILogger) *TextPanel {
	return newTextPanel(store.ModeChat, llmProvider, builder, log)
}

// NewDirectorPanel generates new scene material in Fountain.
func NewDirectorPanel(llmProvider llm.LLMProvider, builder *prompt.Builder, log logger.ILogger) *TextPanel {
	return newTextPanel(store.ModeDirector, llmProvider, builder, log)
}

// NewDialoguePanel writes dialogue for the characters in the current scene.
func NewDialoguePanel(llmProvider llm.LLMProvider, builder *prompt.Builder, log logger.ILogger) *TextPanel {
	return newTextPanel(store.ModeDialogue, llmProvider, builder, log)
}

func (p *TextPanel) Mode() store.AgentMode {
	return p.mode
}

func (p *TextPanel) Generate(ctx context.Context, req Request) (<-chan llm.StreamChunk, error) {
	messages := p.builder.Build(req.promptInput(p.mode))

	var opts []llm.Option
	if req.Model != "" {
		opts = append(opts, llm.WithModel(req.Model))
	}

	p.logger.Debug(logModule, "Streaming text reply", map[string]interface{}{
		"mode":     p.mode,
		"messages": len(messages),
		"model":    req.Model,
	})

	return p.llmProvider.Stream(ctx, messages, opts...)
}
