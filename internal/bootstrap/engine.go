package bootstrap

import (
	"fmt"

	"ai-screenwriting-be/internal/config"
	"ai-screenwriting-be/internal/pkg/logger"
	"ai-screenwriting-be/pkg/ai/pipeline"
	"ai-screenwriting-be/pkg/ai/prompt"
	"ai-screenwriting-be/pkg/ai/router"
	"ai-screenwriting-be/pkg/ai/workflow"
	"ai-screenwriting-be/pkg/llm/factory"
	"ai-screenwriting-be/pkg/media/image"
	"ai-screenwriting-be/pkg/media/video"
)

// NewModeRouter builds one panel per mode from the configured collaborators.
func NewModeRouter(cfg *config.Config, log logger.ILogger) (*router.Router, error) {
	llmProvider, err := factory.NewLLMProvider(factory.ProviderConfig{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  cfg.Ai.LLMBaseURL,
		APIKey:   cfg.Ai.APIKey(),
		Timeout:  cfg.Ai.LLMTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init LLM provider: %w", err)
	}
	log.Info("Bootstrap", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	builder, err := prompt.NewBuilder(cfg.Ai.ContextTokenBudget)
	if err != nil {
		return nil, err
	}
	imageGen := image.NewOpenAIGenerator(cfg.Ai.OpenAIAPIKey, cfg.Ai.ImageModel)
	videoGen := video.NewHTTPGenerator(cfg.Ai.VideoBaseURL, cfg.Ai.VideoAPIKey, cfg.Ai.VideoTimeout)

	return router.New(router.Panels{
		Chat:            pipeline.NewChatPanel(llmProvider, builder, log),
		Director:        pipeline.NewDirectorPanel(llmProvider, builder, log),
		Dialogue:        pipeline.NewDialoguePanel(llmProvider, builder, log),
		Image:           pipeline.NewImagePanel(imageGen, builder, log),
		QuickVideo:      pipeline.NewVideoPanel(videoGen, builder, log),
		SceneVisualizer: pipeline.NewSceneVisualizerPanel(imageGen, builder, log, cfg.Ai.StoryboardFrames),
	})
}

// NewPlanner loads the interview catalog from the configured path, or the built-in one.
func NewPlanner(cfg *config.Config) (*workflow.Planner, error) {
	if cfg.Ai.InterviewsPath == "" {
		return workflow.NewPlanner(workflow.DefaultCatalog()), nil
	}
	catalog, err := workflow.LoadCatalog(cfg.Ai.InterviewsPath)
	if err != nil {
		return nil, err
	}
	return workflow.NewPlanner(catalog), nil
}
