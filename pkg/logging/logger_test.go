// ABOUTME: Tests for the zap-backed logger
// ABOUTME: Validates level filtering, scoped fields, and level parsing

package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{" error ", ErrorLevel},
		{"", InfoLevel},
		{"nonsense", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestZapLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZapLogger(Config{Level: WarnLevel, Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown", String("path", "/payments/v1/meta"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "/payments/v1/meta")
}

func TestZapLogger_WithFieldsScopesEntries(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZapLogger(Config{Level: DebugLevel, Output: &buf})

	scoped := logger.WithFields(String("correlation_id", "corr-123"))
	scoped.Error("request failed", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "corr-123")
	assert.Contains(t, out, "boom")
}

func TestGlobalLogger_SetAndGet(t *testing.T) {
	original := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(original) })

	nop := NewNop()
	SetGlobalLogger(nop)
	assert.Same(t, nop, GetGlobalLogger())
}
