package anthropic

import (
	"context"
	"fmt"

	"ai-screenwriting-be/pkg/llm"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type AnthropicProvider struct {
	client anthropic.Client
	model  anthropic.Model
}

var _ llm.LLMProvider = &AnthropicProvider{}

func NewAnthropicProvider(apiKey, modelName string, opts ...option.RequestOption) *AnthropicProvider {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(modelName),
	}
}

func (a *AnthropicProvider) params(history []llm.Message, opts []llm.Option) anthropic.MessageNewParams {
	options := llm.ApplyOptions(opts...)
	model := a.model
	if options.Model != "" {
		model = anthropic.Model(options.Model)
	}

	system, rest := llm.SplitSystem(history)
	messages := make([]anthropic.MessageParam, 0, len(rest))
	for _, m := range rest {
		role := anthropic.MessageParamRoleUser
		if m.Role == "assistant" || m.Role == "model" {
			role = anthropic.MessageParamRoleAssistant
		}
		messages = append(messages, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)},
		})
	}

	params := anthropic.MessageNewParams{
		Model:       model,
		Messages:    messages,
		MaxTokens:   int64(options.MaxTokens),
		Temperature: anthropic.Float(options.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

func (a *AnthropicProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	resp, err := a.client.Messages.New(ctx, a.params(history, opts))
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var text string
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("anthropic messages: empty response")
	}
	return text, nil
}

func (a *AnthropicProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return a.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func (a *AnthropicProvider) Stream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.StreamChunk, error) {
	stream := a.client.Messages.NewStreaming(ctx, a.params(history, opts))

	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			text, ok := delta.Delta.AsAny().(anthropic.TextDelta)
			if !ok || text.Text == "" {
				continue
			}
			if !llm.Send(ctx, ch, llm.StreamChunk{Content: text.Text}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			llm.Send(ctx, ch, llm.StreamChunk{Error: fmt.Errorf("anthropic stream: %w", err)})
			return
		}
		llm.Send(ctx, ch, llm.StreamChunk{Done: true})
	}()
	return ch, nil
}
