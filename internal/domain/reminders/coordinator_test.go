package reminders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pet-vaccine-reminders/internal/domain/schedule"
	"pet-vaccine-reminders/internal/domain/vaccines"
)

func TestRescheduleAll_OnlyFutureDue(t *testing.T) {
	store := newFakeStore(
		vaccines.Vaccine{ID: 1, NextDueDate: ptr(baseNow.AddDate(0, 0, 10))},
		vaccines.Vaccine{ID: 2, NextDueDate: ptr(baseNow.AddDate(0, 1, 0))},
		vaccines.Vaccine{ID: 3, NextDueDate: ptr(baseNow.AddDate(0, 0, 30))},
		vaccines.Vaccine{ID: 4, NextDueDate: ptr(baseNow.AddDate(0, 0, -3))},
		vaccines.Vaccine{ID: 5},
	)
	timer := newFakeTimer()
	c := NewCoordinator(store, NewScheduler(timer, utc, nil), 2, nil)

	out, err := c.RescheduleAll(context.Background(), DefaultSettings(), baseNow)
	require.NoError(t, err)
	assert.Equal(t, BatchOutcome{Total: 3, Scheduled: 3}, out)

	// exactamente N ciclos cancel+schedule
	assert.Equal(t, 3*len(schedule.Catalog), timer.cancelCount())
	for _, id := range timer.ids() {
		vid := id / schedule.OffsetLimit
		assert.Contains(t, []int64{1, 2, 3}, vid)
	}
	assert.Len(t, timer.ids(), 12)
}

func TestRescheduleAll_NewSettingsReplaceOldTriggers(t *testing.T) {
	store := newFakeStore(vaccines.Vaccine{ID: 1, NextDueDate: ptr(baseNow.AddDate(0, 0, 20))})
	timer := newFakeTimer()
	c := NewCoordinator(store, NewScheduler(timer, utc, nil), 4, nil)
	ctx := context.Background()

	_, err := c.RescheduleAll(ctx, DefaultSettings(), baseNow)
	require.NoError(t, err)
	assert.Equal(t, []int64{1000, 1001, 1003, 1007}, timer.ids())

	_, err = c.RescheduleAll(ctx, Settings{Offsets: []int{14}, NotificationHour: 8}, baseNow)
	require.NoError(t, err)
	assert.Equal(t, []int64{1014}, timer.ids())
}

func TestRescheduleAll_ItemFailureDoesNotAbort(t *testing.T) {
	store := newFakeStore(
		vaccines.Vaccine{ID: 1, NextDueDate: ptr(baseNow.AddDate(0, 0, 10))},
		vaccines.Vaccine{ID: 2, NextDueDate: ptr(baseNow.AddDate(0, 0, 10))},
		vaccines.Vaccine{ID: 3, NextDueDate: ptr(baseNow.AddDate(0, 0, 10))},
	)
	timer := newFakeTimer()
	timer.registerErr[schedule.TriggerID(2, 0)] = errors.New("timer unavailable")
	c := NewCoordinator(store, NewScheduler(timer, utc, nil), 3, nil)

	out, err := c.RescheduleAll(context.Background(), DefaultSettings(), baseNow)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 2, out.Scheduled)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, int64(2), out.Failures[0].VaccineID)
}

func TestRescheduleAll_PermissionDeniedCountsAsSkipped(t *testing.T) {
	store := newFakeStore(
		vaccines.Vaccine{ID: 1, NextDueDate: ptr(baseNow.AddDate(0, 0, 10))},
		vaccines.Vaccine{ID: 2, NextDueDate: ptr(baseNow.AddDate(0, 0, 10))},
	)
	timer := newFakeTimer()
	timer.inexact = true
	c := NewCoordinator(store, NewScheduler(timer, utc, nil), 1, nil)

	out, err := c.RescheduleAll(context.Background(), DefaultSettings(), baseNow)
	require.NoError(t, err)
	assert.Equal(t, BatchOutcome{Total: 2, Skipped: 2}, out)
}

func TestRescheduleAll_QueryFailure(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("db down")
	c := NewCoordinator(store, NewScheduler(newFakeTimer(), utc, nil), 1, nil)

	_, err := c.RescheduleAll(context.Background(), DefaultSettings(), baseNow)
	assert.Error(t, err)
}
