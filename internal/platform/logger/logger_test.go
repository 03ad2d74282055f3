package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevelAndFormat(t *testing.T) {
	assert.Equal(t, Debug, ParseLevel(" DEBUG "))
	assert.Equal(t, Warn, ParseLevel("warning"))
	assert.Equal(t, Info, ParseLevel("nonsense"))
	assert.Equal(t, "error", Error.String())

	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatText, ParseFormat(""))
}

func TestZapLogger_WithMergesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core).With(map[string]any{"component": "scheduler", "": "skipped"})

	log.Info("triggers registered", map[string]any{
		"vaccine_id": int64(7),
		"err":        errors.New("boom"),
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "triggers registered", entry.Message)

	ctx := entry.ContextMap()
	assert.Equal(t, "scheduler", ctx["component"])
	assert.Equal(t, int64(7), ctx["vaccine_id"])
	assert.Equal(t, "boom", ctx["err"])
	_, hasBlank := ctx[""]
	assert.False(t, hasBlank)
}

func TestZapLogger_RespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := NewWithCore(core)

	log.Debug("hidden", nil)
	log.Info("hidden", nil)
	log.Warn("shown", nil)
	log.Error("shown", nil)

	assert.Equal(t, 2, logs.Len())
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().With(map[string]any{"a": 1}).Error("x", map[string]any{"b": 2})
	})
}
