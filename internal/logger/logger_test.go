package logger

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{" warn ", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"verbose", log.InfoLevel},
		{"", log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(&bytes.Buffer{}, tt.level)
			assert.Equal(t, tt.want, l.GetLevel())
		})
	}
}

func TestNew_WritesPrefixedLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info").WithPrefix("[Simulator]")

	l.Info("intake accepted", "files", 2)
	l.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "[Simulator]")
	assert.Contains(t, out, "intake accepted")
	assert.Contains(t, out, "files=2")
	assert.NotContains(t, out, "hidden")
}
