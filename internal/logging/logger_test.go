package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"verbose", slog.LevelWarn},
		{"", slog.LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in, slog.LevelWarn))
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("debug flag enables debug output", func(t *testing.T) {
		t.Setenv("TREB_LOG_LEVEL", "")
		var buf bytes.Buffer
		log := newLogger(&config.RuntimeConfig{Debug: true}, &buf)
		log.Debug("resolved contract", "chain_id", 10)
		assert.Contains(t, buf.String(), "resolved contract")
		assert.Contains(t, buf.String(), "chain_id=10")
	})

	t.Run("env level filters", func(t *testing.T) {
		t.Setenv("TREB_LOG_LEVEL", "error")
		var buf bytes.Buffer
		log := newLogger(&config.RuntimeConfig{}, &buf)
		log.Warn("failed to save report")
		assert.Empty(t, buf.String())
		log.Error("mutation failed")
		assert.Contains(t, buf.String(), "mutation failed")
		assert.NotContains(t, buf.String(), "time=")
	})
}
