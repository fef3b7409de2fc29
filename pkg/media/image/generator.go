// Package image generates still frames for the image and scene-visualizer modes.
package image

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var ErrNoImage = errors.New("image generator returned no image")

type Request struct {
	Prompt string
	Model  string
	Size   string // e.g. "1792x1024"; empty selects the generator default
	Count  int
}

type Image struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type Generator interface {
	Generate(ctx context.Context, req Request) ([]Image, error)
}

// OpenAIGenerator calls the OpenAI Images API.
type OpenAIGenerator struct {
	client openai.Client
	model  string
	size   string
}

var _ Generator = &OpenAIGenerator{}

func NewOpenAIGenerator(apiKey, model string, opts ...option.RequestOption) *OpenAIGenerator {
	if model == "" {
		model = openai.ImageModelDallE3
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		model:  model,
		size:   string(openai.ImageGenerateParamsSize1792x1024),
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) ([]Image, error) {
	model := g.model
	if req.Model != "" {
		model = req.Model
	}
	size := g.size
	if req.Size != "" {
		size = req.Size
	}
	n := req.Count
	if n <= 0 {
		n = 1
	}

	params := openai.ImageGenerateParams{
		Prompt:         req.Prompt,
		Model:          model,
		N:              openai.Int(int64(n)),
		Size:           openai.ImageGenerateParamsSize(size),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	}

	resp, err := g.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai images: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, ErrNoImage
	}

	images := make([]Image, 0, len(resp.Data))
	for _, d := range resp.Data {
		images = append(images, Image{URL: d.URL, RevisedPrompt: d.RevisedPrompt})
	}
	return images, nil
}
