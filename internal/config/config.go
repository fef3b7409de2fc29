package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Session  SessionConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRatio float64
}

type AuthConfig struct {
	JWTSecret string
}

type AIConfig struct {
	LLMProvider string // "ollama", "gemini" or "anthropic"
	LLMModel    string
	LLMBaseURL  string
	LLMTimeout  time.Duration
	Models      []string // models offered in the model menu; empty allows any

	GeminiAPIKey    string
	AnthropicAPIKey string
	OpenAIAPIKey    string

	ImageModel       string
	StoryboardFrames int
	VideoBaseURL     string
	VideoAPIKey      string
	VideoTimeout     time.Duration

	ContextTokenBudget int
	InterviewsPath     string // empty uses the built-in catalog
}

type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// APIKey returns the key for the configured text provider.
func (c AIConfig) APIKey() string {
	switch c.LLMProvider {
	case "gemini":
		return c.GeminiAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			LLMProvider:        getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:           getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:11434"),
			LLMTimeout:         getEnvAsDuration("LLM_TIMEOUT", 2*time.Minute),
			Models:             getEnvAsSlice("LLM_MODELS"),
			GeminiAPIKey:       getEnv("GOOGLE_GEMINI_API_KEY", ""),
			AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
			OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
			ImageModel:         getEnv("IMAGE_MODEL", "dall-e-3"),
			StoryboardFrames:   getEnvAsInt("STORYBOARD_FRAMES", 4),
			VideoBaseURL:       getEnv("VIDEO_BASE_URL", ""),
			VideoAPIKey:        getEnv("VIDEO_API_KEY", ""),
			VideoTimeout:       getEnvAsDuration("VIDEO_TIMEOUT", 5*time.Minute),
			ContextTokenBudget: getEnvAsInt("CONTEXT_TOKEN_BUDGET", 6000),
			InterviewsPath:     getEnv("INTERVIEWS_PATH", ""),
		},
		Session: SessionConfig{
			TTL:             getEnvAsDuration("SESSION_TTL", time.Hour),
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "ai-screenwriting-backend"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsSlice splits a comma separated value, dropping blanks.
func getEnvAsSlice(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
