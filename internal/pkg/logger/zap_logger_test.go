package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewWithCore(core)

	l.Info("Dispatcher", "Mode switched", map[string]interface{}{"to": "chat"})
	l.Debug("Dispatcher", "Trigger applied", nil)
	l.Error("Panel", "Generation failed", map[string]interface{}{"error": errors.New("timeout")})

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "Mode switched", entries[0].Message)
	assert.Equal(t, "Dispatcher", entries[0].ContextMap()["module"])
	assert.Equal(t, map[string]interface{}{"to": "chat"}, entries[0].ContextMap()["details"])

	assert.Equal(t, map[string]interface{}{}, entries[1].ContextMap()["details"])

	assert.Contains(t, entries[2].ContextMap(), "error_ref")
}

func TestNop(t *testing.T) {
	l := Nop()
	assert.NotPanics(t, func() {
		l.Warn("Workflow", "ignored", nil)
		_ = l.Sync()
	})
}
