package cronjobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"pet-vaccine-reminders/internal/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunner_RejectsInvalidSpec(t *testing.T) {
	r := New(context.Background(), time.UTC, logger.Nop())

	assert.Error(t, r.Add("resync", "not a cron", 0, func(ctx context.Context) error { return nil }))
	assert.Error(t, r.Add("", "@daily", 0, func(ctx context.Context) error { return nil }))
	assert.Error(t, r.Add("resync", " ", 0, func(ctx context.Context) error { return nil }))
}

func TestRunner_RunsJob(t *testing.T) {
	r := New(context.Background(), time.UTC, logger.Nop())

	var runs atomic.Int32
	require.NoError(t, r.Add("tick", "@every 1s", time.Second, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("logged, not fatal")
	}))
	require.Len(t, r.Next(), 1)

	r.Start()
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	r.Stop()
}

func TestRunner_PanicGoesToLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := New(context.Background(), time.UTC, logger.NewWithCore(core))

	require.NoError(t, r.Add("boom", "@every 1s", 0, func(ctx context.Context) error {
		panic("resync exploded")
	}))

	r.Start()
	defer r.Stop()
	require.Eventually(t, func() bool {
		return logs.FilterMessage("panic").FilterLevelExact(zapcore.ErrorLevel).Len() >= 1
	}, 3*time.Second, 50*time.Millisecond)

	entry := logs.FilterMessage("panic").All()[0]
	assert.Equal(t, "cron", entry.ContextMap()["component"])
	assert.Contains(t, entry.ContextMap()["err"], "resync exploded")
}

func TestCronLogger_PairsKeysAndValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cl := cronLogger{log: logger.NewWithCore(core)}

	cl.Info("schedule", "now", "t0", "entry", 1, "dangling")
	cl.Error(errors.New("bad"), "panic", "stack", "...")

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, zapcore.DebugLevel, all[0].Level)
	assert.Equal(t, map[string]any{"now": "t0", "entry": int64(1)}, all[0].ContextMap())
	assert.Equal(t, zapcore.ErrorLevel, all[1].Level)
	assert.Equal(t, "...", all[1].ContextMap()["stack"])
}
