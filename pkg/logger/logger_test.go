package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.Info("snapped stop", "stop_id", "A", "node", 3)

	m := decodeLine(t, &buf)
	assert.Equal(t, "snapped stop", m["message"])
	assert.Equal(t, "A", m["stop_id"])
	assert.Equal(t, float64(3), m["node"])
	assert.Equal(t, "info", m["level"])
}

func TestErrorFieldUsesErr(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.Error("fetch failed", "error", errors.New("boom"))

	m := decodeLine(t, &buf)
	assert.Equal(t, "boom", m[zerolog.ErrorFieldName])
}

func TestMapFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.Warn("stale", map[string]interface{}{"feed": "f"})

	m := decodeLine(t, &buf)
	assert.Equal(t, "f", m["feed"])
	assert.Equal(t, "warn", m["level"])
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := FromZerolog(zerolog.New(&buf).Level(zerolog.WarnLevel))
	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())
}
