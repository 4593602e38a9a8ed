package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{" WARN ", slog.LevelWarn, true},
		{"", slog.LevelInfo, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}

func TestForRunTagsContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(NewHandler(&buf, slog.LevelDebug, "json")).With("requestID", "req-1")
	ctx := ToContext(context.Background(), base)

	ForRun(ctx, "ledger", "01JABCDEF").Info("saved")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line["requestID"])
	assert.Equal(t, "ledger", line["domain"])
	assert.Equal(t, "01JABCDEF", line["runID"])
	assert.Equal(t, "saved", line["msg"])
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	assert.Same(t, L, FromContext(context.Background()))
}
