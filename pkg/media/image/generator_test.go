package image

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "A rain-soaked alley at night", body["prompt"])
		assert.Equal(t, "dall-e-3", body["model"])
		assert.Equal(t, float64(2), body["n"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created": 1, "data": [
			{"url": "https://img.example/1.png", "revised_prompt": "alley"},
			{"url": "https://img.example/2.png"}
		]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("test-key", "", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	images, err := g.Generate(context.Background(), Request{Prompt: "A rain-soaked alley at night", Count: 2})

	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "https://img.example/1.png", images[0].URL)
	assert.Equal(t, "alley", images[0].RevisedPrompt)
}

func TestOpenAIGeneratorEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created": 1, "data": []}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("test-key", "dall-e-3", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	_, err := g.Generate(context.Background(), Request{Prompt: "x"})

	assert.ErrorIs(t, err, ErrNoImage)
}
