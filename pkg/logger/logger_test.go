package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	require.Error(t, err)
}

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.DebugLevel).With(String("component", "scheduler"))

	l.Info("fetch done",
		Int("records", 3),
		Duration("took", 1500*time.Millisecond),
		Bool("ok", true),
		Error(errors.New("boom")),
	)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "fetch done", out["message"])
	assert.Equal(t, "scheduler", out["component"])
	assert.EqualValues(t, 3, out["records"])
	assert.EqualValues(t, 1500, out["took"])
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "boom", out["error"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.WarnLevel)
	l.Info("hidden")
	l.Debug("hidden")
	assert.Zero(t, buf.Len())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNopDiscards(t *testing.T) {
	l := NewNop()
	l.Error("nothing", Error(errors.New("x")))
}
