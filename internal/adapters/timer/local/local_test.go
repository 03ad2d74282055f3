package local_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pet-vaccine-reminders/internal/adapters/timer/local"
	"pet-vaccine-reminders/internal/domain/reminders"
	"pet-vaccine-reminders/internal/platform/logger"
)

// inlineDispatcher corre la tarea en el mismo goroutine del timer.
type inlineDispatcher struct{}

func (inlineDispatcher) Submit(_ string, fn func(ctx context.Context)) error {
	fn(context.Background())
	return nil
}

// flakyDispatcher rechaza todo mientras failing sea true, como una cola llena.
type flakyDispatcher struct {
	failing  atomic.Bool
	attempts atomic.Int32
}

func (d *flakyDispatcher) Submit(_ string, fn func(ctx context.Context)) error {
	d.attempts.Add(1)
	if d.failing.Load() {
		return errors.New("worker queue full")
	}
	fn(context.Background())
	return nil
}

type recorder struct {
	mu    sync.Mutex
	fired []int64
	last  reminders.Payload
}

func (r *recorder) fire(_ context.Context, id int64, p reminders.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, id)
	r.last = p
}

func (r *recorder) ids() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.fired...)
}

func newTimer(t *testing.T, exact bool) (*local.Timer, *recorder) {
	t.Helper()
	rec := &recorder{}
	tm := local.New(exact, inlineDispatcher{}, logger.Nop())
	tm.SetFireFunc(rec.fire)
	t.Cleanup(tm.Stop)
	return tm, rec
}

func TestTimer_FiresWithPayload(t *testing.T) {
	tm, rec := newTimer(t, true)
	ctx := context.Background()

	require.NoError(t, tm.Register(ctx, time.Now().Add(10*time.Millisecond), 1001, reminders.Payload{VaccineID: 1, OffsetDays: 1}))

	require.Eventually(t, func() bool { return len(rec.ids()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1001}, rec.ids())
	assert.Equal(t, 1, rec.last.OffsetDays)
	assert.Empty(t, tm.Pending())
}

func TestTimer_PastInstantFiresImmediately(t *testing.T) {
	tm, rec := newTimer(t, true)

	require.NoError(t, tm.Register(context.Background(), time.Now().Add(-time.Hour), 7, reminders.Payload{}))
	require.Eventually(t, func() bool { return len(rec.ids()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestTimer_RegisterReplacesExisting(t *testing.T) {
	tm, rec := newTimer(t, true)
	ctx := context.Background()

	require.NoError(t, tm.Register(ctx, time.Now().Add(time.Hour), 1001, reminders.Payload{OffsetDays: 3}))
	require.NoError(t, tm.Register(ctx, time.Now().Add(10*time.Millisecond), 1001, reminders.Payload{OffsetDays: 1}))

	require.Eventually(t, func() bool { return len(rec.ids()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, rec.ids(), 1)
	assert.Equal(t, 1, rec.last.OffsetDays)
}

func TestTimer_CancelPreventsFire(t *testing.T) {
	tm, rec := newTimer(t, true)
	ctx := context.Background()

	require.NoError(t, tm.Register(ctx, time.Now().Add(20*time.Millisecond), 1001, reminders.Payload{}))
	require.NoError(t, tm.Cancel(ctx, 1001))
	require.NoError(t, tm.Cancel(ctx, 9999))

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.ids())
	assert.Empty(t, tm.Pending())
}

func TestTimer_NotExactDeniesRegister(t *testing.T) {
	tm, _ := newTimer(t, false)

	assert.False(t, tm.CanScheduleExact(context.Background()))
	err := tm.Register(context.Background(), time.Now().Add(time.Hour), 1, reminders.Payload{})
	assert.ErrorIs(t, err, reminders.ErrPermissionDenied)
}

func TestTimer_RejectedDispatchIsRetried(t *testing.T) {
	d := &flakyDispatcher{}
	d.failing.Store(true)
	rec := &recorder{}
	tm := local.New(true, d, logger.Nop()).WithRetryDelay(10 * time.Millisecond)
	tm.SetFireFunc(rec.fire)
	t.Cleanup(tm.Stop)

	at := time.Now().Add(-time.Minute)
	require.NoError(t, tm.Register(context.Background(), at, 1001, reminders.Payload{OffsetDays: 7}))

	require.Eventually(t, func() bool { return d.attempts.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, rec.ids())
	pending := tm.Pending()
	require.Contains(t, pending, int64(1001))
	assert.True(t, pending[1001].Equal(at))

	d.failing.Store(false)
	require.Eventually(t, func() bool { return len(rec.ids()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 7, rec.last.OffsetDays)
	assert.Empty(t, tm.Pending())
}

func TestTimer_RetryYieldsToNewerRegistration(t *testing.T) {
	d := &flakyDispatcher{}
	d.failing.Store(true)
	rec := &recorder{}
	tm := local.New(true, d, logger.Nop()).WithRetryDelay(time.Hour)
	tm.SetFireFunc(rec.fire)
	t.Cleanup(tm.Stop)
	ctx := context.Background()

	require.NoError(t, tm.Register(ctx, time.Now(), 1001, reminders.Payload{OffsetDays: 3}))
	require.Eventually(t, func() bool { return d.attempts.Load() == 1 }, time.Second, 5*time.Millisecond)

	d.failing.Store(false)
	require.NoError(t, tm.Register(ctx, time.Now().Add(10*time.Millisecond), 1001, reminders.Payload{OffsetDays: 1}))
	require.Eventually(t, func() bool { return len(rec.ids()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rec.last.OffsetDays)
}

func TestTimer_RegisterAfterStop(t *testing.T) {
	tm, rec := newTimer(t, true)
	tm.Stop()

	err := tm.Register(context.Background(), time.Now(), 1001, reminders.Payload{})
	assert.ErrorIs(t, err, local.ErrStopped)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.ids())
	assert.Empty(t, tm.Pending())
}
