package debug_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/strata/internal/debug"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, debug.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, debug.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, debug.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, debug.ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, debug.ParseLevel("verbose"))
}

func TestCategoryAttribute(t *testing.T) {
	var buf bytes.Buffer
	debug.Init(debug.Options{Level: "debug", JSON: true, Writer: &buf})
	t.Cleanup(func() { debug.Init(debug.Options{Level: "error", Writer: &bytes.Buffer{}}) })

	assert.True(t, debug.Enabled())
	debug.Debug("query", "compiled", "sql", "SELECT 1;")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "query", line["category"])
	assert.Equal(t, "compiled", line["msg"])
	assert.Equal(t, "SELECT 1;", line["sql"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	debug.Init(debug.Options{Level: "warn", Writer: &buf})
	t.Cleanup(func() { debug.Init(debug.Options{Level: "error", Writer: &bytes.Buffer{}}) })

	assert.False(t, debug.Enabled())
	debug.Info("router", "hidden")
	assert.Empty(t, buf.String())

	debug.Warn("router", "shown")
	assert.Contains(t, buf.String(), "category=router")
	assert.Contains(t, buf.String(), "msg=shown")
}
