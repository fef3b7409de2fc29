package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("SESSION_TTL", "")

	cfg := Load()

	assert.Equal(t, "ollama", cfg.Ai.LLMProvider)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, 6000, cfg.Ai.ContextTokenBudget)
	assert.Empty(t, cfg.Ai.APIKey())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("LLM_MODELS", "claude-sonnet-4-5, ,claude-haiku-4-5")
	t.Setenv("LLM_TIMEOUT", "45s")
	t.Setenv("STORYBOARD_FRAMES", "six")
	t.Setenv("GO_ENV", "production")

	cfg := Load()

	assert.Equal(t, "sk-test", cfg.Ai.APIKey())
	assert.Equal(t, []string{"claude-sonnet-4-5", "claude-haiku-4-5"}, cfg.Ai.Models)
	assert.Equal(t, 45*time.Second, cfg.Ai.LLMTimeout)
	assert.Equal(t, 4, cfg.Ai.StoryboardFrames)
	assert.True(t, cfg.IsProduction())
}

func TestLoadTracing(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLE_RATIO", "0.25")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg := Load()

	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRatio)
	assert.Empty(t, cfg.Tracing.Endpoint)
	assert.Equal(t, "ai-screenwriting-backend", cfg.Tracing.ServiceName)
}
