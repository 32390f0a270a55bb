package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/infraguardian/infraguardian/guardian/agent/types"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.LogConfig
		enabled zapcore.Level
		skipped zapcore.Level
	}{
		{name: "production default", cfg: types.LogConfig{}, enabled: zapcore.InfoLevel, skipped: zapcore.DebugLevel},
		{name: "development debug", cfg: types.LogConfig{Level: "debug", Development: true}, enabled: zapcore.DebugLevel, skipped: zapcore.DebugLevel - 1},
		{name: "warn", cfg: types.LogConfig{Level: "warn"}, enabled: zapcore.WarnLevel, skipped: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewLogger(tt.cfg)
			require.NoError(t, err)

			core := log.Desugar().Core()
			assert.True(t, core.Enabled(tt.enabled))
			assert.False(t, core.Enabled(tt.skipped))
		})
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(types.LogConfig{Level: "verbose"})
	assert.ErrorContains(t, err, "invalid log level")
}
