package gemini

import (
	"context"
	"fmt"
	"sync"

	"ai-screenwriting-be/pkg/llm"

	"google.golang.org/genai"
)

type GeminiProvider struct {
	apiKey    string
	modelName string

	once      sync.Once
	client    *genai.Client
	clientErr error
}

var _ llm.LLMProvider = &GeminiProvider{}

// NewGeminiProvider defers client creation to the first call, which has a context.
func NewGeminiProvider(apiKey, modelName string) *GeminiProvider {
	return &GeminiProvider{apiKey: apiKey, modelName: modelName}
}

func (g *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		g.client, g.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if g.clientErr != nil {
		return nil, fmt.Errorf("create gemini client: %w", g.clientErr)
	}
	return g.client, nil
}

func (g *GeminiProvider) request(history []llm.Message, opts []llm.Option) (string, []*genai.Content, *genai.GenerateContentConfig) {
	options := llm.ApplyOptions(opts...)
	model := g.modelName
	if options.Model != "" {
		model = options.Model
	}

	system, rest := llm.SplitSystem(history)
	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" || m.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(options.Temperature)),
		MaxOutputTokens: int32(options.MaxTokens),
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	return model, contents, config
}

func (g *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}
	model, contents, config := g.request(history, opts)

	result, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return result.Text(), nil
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return g.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func (g *GeminiProvider) Stream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.StreamChunk, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return nil, err
	}
	model, contents, config := g.request(history, opts)

	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		for resp, err := range client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				llm.Send(ctx, ch, llm.StreamChunk{Error: fmt.Errorf("gemini stream: %w", err)})
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if !llm.Send(ctx, ch, llm.StreamChunk{Content: text}) {
				return
			}
		}
		llm.Send(ctx, ch, llm.StreamChunk{Done: true})
	}()
	return ch, nil
}
