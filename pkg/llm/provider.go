package llm

import (
	"context"
	"strings"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// StreamChunk is one piece of a streamed reply. The last chunk has Done set,
// or Error when the stream failed.
type StreamChunk struct {
	Content string
	Done    bool
	Error   error
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// ApplyOptions resolves opts over the defaults shared by every provider.
func ApplyOptions(opts ...Option) *Options {
	options := &Options{Temperature: 0.7, MaxTokens: 2048}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// Stream sends a chat history and delivers the reply incrementally.
	// The channel is closed after a Done or Error chunk.
	Stream(ctx context.Context, history []Message, options ...Option) (<-chan StreamChunk, error)
}

// SplitSystem pulls system messages out of history for providers that take the
// system prompt as a separate parameter.
func SplitSystem(history []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

// Send delivers chunk unless ctx is done first.
func Send(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// StreamOnce adapts a blocking completion into a single-chunk stream.
func StreamOnce(ctx context.Context, complete func(context.Context) (string, error)) <-chan StreamChunk {
	ch := make(chan StreamChunk, 1)
	go func() {
		defer close(ch)
		content, err := complete(ctx)
		if err != nil {
			Send(ctx, ch, StreamChunk{Error: err})
			return
		}
		if Send(ctx, ch, StreamChunk{Content: content}) {
			Send(ctx, ch, StreamChunk{Done: true})
		}
	}()
	return ch
}
