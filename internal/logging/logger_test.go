package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent("walker").With("package", "/repo/a").
		Warn(context.Background(), errors.New("boom"), "File skipped", "path", "src/x.ts")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "File skipped", entry["msg"])
	assert.Equal(t, "walker", entry["component"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "/repo/a", entry["package"])
	assert.Equal(t, "src/x.ts", entry["path"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Format: "json", Output: &buf})
	ctx := context.Background()

	logger.Debug(ctx, "hidden")
	logger.Info(ctx, "hidden too")
	assert.Empty(t, buf.String())

	logger.Error(ctx, nil, "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "text", Output: &buf})

	logger.WithComponent("orchestrator").Info(context.Background(), "Building package", "name", "app")

	out := buf.String()
	assert.Contains(t, out, "Building package")
	assert.Contains(t, out, "orchestrator")
	assert.Contains(t, out, "app")
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1)
}

func TestWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "json", Output: &buf})
	_ = parent.With("child", true)

	parent.Info(context.Background(), "parent")
	assert.NotContains(t, buf.String(), "child")
}

func TestNop(t *testing.T) {
	logger := Nop().WithComponent("x").With("a", 1)
	assert.NotPanics(t, func() {
		logger.Error(context.Background(), errors.New("ignored"), "ignored")
	})
}

func TestFieldsToAttrsIgnoresDanglingKey(t *testing.T) {
	attrs := fieldsToAttrs([]interface{}{"a", 1, 2, "b", "c"})
	require.Len(t, attrs, 1)
	assert.Equal(t, "a", attrs[0].Key)
}
