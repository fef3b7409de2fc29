package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-screenwriting-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "mistral", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "assistant", req.Messages[1].Role)

		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: "CUT TO:"}, Done: true})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3", time.Second)
	reply, err := p.Chat(context.Background(), []llm.Message{
		{Role: "user", Content: "hi"},
		{Role: "model", Content: "hello"},
	}, llm.WithModel("mistral"))

	require.NoError(t, err)
	assert.Equal(t, "CUT TO:", reply)
}

func TestChatStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "llama3", time.Second).Generate(context.Background(), "hi")

	assert.ErrorContains(t, err, "status 404")
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, part := range []string{"INT. ", "OFFICE", " - DAY"} {
			fmt.Fprintf(w, `{"message":{"role":"assistant","content":%q},"done":false}`+"\n", part)
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()

	ch, err := NewOllamaProvider(srv.URL, "llama3", time.Second).Stream(context.Background(), []llm.Message{{Role: "user", Content: "heading"}})
	require.NoError(t, err)

	var text string
	var done bool
	for c := range ch {
		require.NoError(t, c.Error)
		text += c.Content
		done = done || c.Done
	}
	assert.Equal(t, "INT. OFFICE - DAY", text)
	assert.True(t, done)
}

func TestStreamTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"half"},"done":false}`)
	}))
	defer srv.Close()

	ch, err := NewOllamaProvider(srv.URL, "llama3", time.Second).Stream(context.Background(), nil)
	require.NoError(t, err)

	var last llm.StreamChunk
	for c := range ch {
		last = c
	}
	assert.Error(t, last.Error)
}
