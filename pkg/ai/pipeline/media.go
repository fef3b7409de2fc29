package pipeline

import (
	"context"
	"fmt"
	"strings"

	"ai-screenwriting-be/internal/pkg/logger"
	"ai-screenwriting-be/pkg/ai/prompt"
	"ai-screenwriting-be/pkg/llm"
	"ai-screenwriting-be/pkg/media/image"
	"ai-screenwriting-be/pkg/media/video"
	"ai-screenwriting-be/pkg/store"

	"golang.org/x/sync/errgroup"
)

// ImagePanel renders one still from the prompt, the entity banner and the scene.
type ImagePanel struct {
	generator image.Generator
	builder   *prompt.Builder
	logger    logger.ILogger
}

func NewImagePanel(generator image.Generator, builder *prompt.Builder, log logger.ILogger) *ImagePanel {
	return &ImagePanel{generator: generator, builder: builder, logger: log}
}

func (p *ImagePanel) Mode() store.AgentMode {
	return store.ModeImage
}

func (p *ImagePanel) Generate(ctx context.Context, req Request) (<-chan llm.StreamChunk, error) {
	description := p.builder.Describe(req.promptInput(store.ModeImage))
	return llm.StreamOnce(ctx, func(ctx context.Context) (string, error) {
		images, err := p.generator.Generate(ctx, image.Request{Prompt: description, Count: 1})
		if err != nil {
			return "", err
		}
		p.logger.Info(logModule, "Image generated", map[string]interface{}{"count": len(images)})
		return imageMarkdown("Image", images), nil
	}), nil
}

// VideoPanel renders a short clip through the video job API.
type VideoPanel struct {
	generator video.Generator
	builder   *prompt.Builder
	logger    logger.ILogger
}

func NewVideoPanel(generator video.Generator, builder *prompt.Builder, log logger.ILogger) *VideoPanel {
	return &VideoPanel{generator: generator, builder: builder, logger: log}
}

func (p *VideoPanel) Mode() store.AgentMode {
	return store.ModeQuickVideo
}

func (p *VideoPanel) Generate(ctx context.Context, req Request) (<-chan llm.StreamChunk, error) {
	description := p.builder.Describe(req.promptInput(store.ModeQuickVideo))
	return llm.StreamOnce(ctx, func(ctx context.Context) (string, error) {
		clip, err := p.generator.Generate(ctx, video.Request{Prompt: description})
		if err != nil {
			return "", err
		}
		p.logger.Info(logModule, "Video rendered", map[string]interface{}{"job_id": clip.JobID})
		return fmt.Sprintf("[Video clip (%ds)](%s)", clip.DurationSeconds, clip.URL), nil
	}), nil
}

// storyboardShots are the framings requested for each storyboard, in order.
var storyboardShots = []string{
	"Establishing wide shot",
	"Medium shot on the main action",
	"Close-up on the key character",
	"Reaction shot",
}

// SceneVisualizerPanel renders a storyboard of the current scene, one image per frame.
type SceneVisualizerPanel struct {
	generator image.Generator
	builder   *prompt.Builder
	logger    logger.ILogger
	frames    int
}

func NewSceneVisualizerPanel(generator image.Generator, builder *prompt.Builder, log logger.ILogger, frames int) *SceneVisualizerPanel {
	if frames <= 0 || frames > len(storyboardShots) {
		frames = len(storyboardShots)
	}
	return &SceneVisualizerPanel{generator: generator, builder: builder, logger: log, frames: frames}
}

func (p *SceneVisualizerPanel) Mode() store.AgentMode {
	return store.ModeSceneVisualizer
}

func (p *SceneVisualizerPanel) Generate(ctx context.Context, req Request) (<-chan llm.StreamChunk, error) {
	s := req.State
	hasAuto := s.ContextEnabled && s.AutoContext != nil && s.AutoContext.Heading != ""
	if s.SceneContext == nil && !hasAuto && strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrNothingToVisualize
	}
	description := p.builder.Describe(req.promptInput(store.ModeSceneVisualizer))

	return llm.StreamOnce(ctx, func(ctx context.Context) (string, error) {
		frames := make([]image.Image, p.frames)
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < p.frames; i++ {
			g.Go(func() error {
				framePrompt := fmt.Sprintf("Storyboard frame %d of %d, pencil sketch style. %s.\n%s", i+1, p.frames, storyboardShots[i], description)
				images, err := p.generator.Generate(gctx, image.Request{Prompt: framePrompt, Count: 1})
				if err != nil {
					return fmt.Errorf("frame %d: %w", i+1, err)
				}
				if len(images) == 0 {
					return fmt.Errorf("frame %d: %w", i+1, image.ErrNoImage)
				}
				frames[i] = images[0]
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return "", err
		}
		p.logger.Info(logModule, "Storyboard rendered", map[string]interface{}{"frames": p.frames})
		return imageMarkdown("Frame", frames), nil
	}), nil
}

func imageMarkdown(label string, images []image.Image) string {
	var sb strings.Builder
	for i, img := range images {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "![%s %d](%s)", label, i+1, img.URL)
	}
	return sb.String()
}
