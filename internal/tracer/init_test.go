package tracer

import (
	"context"
	"testing"

	"ai-screenwriting-be/internal/config"
	"ai-screenwriting-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.TracingConfig
	}{
		{name: "disabled", cfg: config.TracingConfig{}},
		{name: "enabled", cfg: config.TracingConfig{
			Enabled:     true,
			Endpoint:    "localhost:4318",
			ServiceName: "tracer-test",
			SampleRatio: 0,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown := Init(context.Background(), tt.cfg, logger.Nop())
			require.NotNil(t, shutdown)
			assert.NoError(t, shutdown(context.Background()))
		})
	}
}
