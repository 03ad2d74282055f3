package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pet-vaccine-reminders/internal/domain/pets"
	"pet-vaccine-reminders/internal/domain/schedule"
	"pet-vaccine-reminders/internal/domain/vaccines"
)

type serviceFixture struct {
	svc      *Service
	store    *fakeStore
	timer    *fakeTimer
	inbox    *fakeInbox
	settings *fakeSettings
}

func newServiceFixture(items ...vaccines.Vaccine) serviceFixture {
	f := serviceFixture{
		store:    newFakeStore(items...),
		timer:    newFakeTimer(),
		inbox:    newFakeInbox(),
		settings: &fakeSettings{},
	}
	f.svc = NewService(Deps{
		Vaccines: f.store,
		Pets: petsStub{
			1: {ID: 1, OwnerUserID: "owner-1", Name: "Milo", Species: pets.SpeciesDog},
		},
		Settings:    f.settings,
		Inbox:       f.inbox,
		Timer:       f.timer,
		Location:    utc,
		Parallelism: 2,
	})
	f.svc.SetClock(func() time.Time { return baseNow })
	return f
}

func TestService_ScheduleVaccineUsesStoredSettings(t *testing.T) {
	f := newServiceFixture(vaccines.Vaccine{ID: 1, PetID: 1, Name: "Rabies", NextDueDate: ptr(baseNow.AddDate(0, 0, 20))})
	f.settings.st = &Settings{Offsets: []int{14, 0}, NotificationHour: 18, NotificationMinute: 30}

	out, err := f.svc.ScheduleVaccine(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, out.Status)
	assert.Equal(t, []int64{1000, 1014}, f.timer.ids())
	assert.Equal(t, time.Date(2025, 3, 30, 18, 30, 0, 0, utc), f.timer.regs[1000].At)

	_, err = f.svc.ScheduleVaccine(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_UpdateSettingsReschedulesAll(t *testing.T) {
	f := newServiceFixture(
		vaccines.Vaccine{ID: 1, PetID: 1, NextDueDate: ptr(baseNow.AddDate(0, 0, 20))},
		vaccines.Vaccine{ID: 2, PetID: 1, NextDueDate: ptr(baseNow.AddDate(0, 0, 20))},
	)
	ctx := context.Background()

	st, batch, err := f.svc.UpdateSettings(ctx, Settings{Offsets: []int{7, 1, 7}, NotificationHour: 8})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 7}, st.Offsets)
	assert.Equal(t, BatchOutcome{Total: 2, Scheduled: 2}, batch)
	assert.Equal(t, []int64{1001, 1007, 2001, 2007}, f.timer.ids())

	saved, err := f.svc.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 7}, saved.Offsets)
	assert.Equal(t, baseNow, saved.UpdatedAt)

	_, _, err = f.svc.UpdateSettings(ctx, Settings{Offsets: []int{2}})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	_, _, err = f.svc.UpdateSettings(ctx, Settings{Offsets: []int{0}, NotificationHour: 24})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestService_DefaultsWhenNothingStored(t *testing.T) {
	f := newServiceFixture()
	st, err := f.svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3, 7}, st.Offsets)
	assert.Equal(t, 9, st.NotificationHour)
	assert.Equal(t, 0, st.NotificationMinute)
}

func TestService_OnFireWritesInbox(t *testing.T) {
	due := time.Date(2025, 3, 11, 0, 0, 0, 0, utc)
	f := newServiceFixture(vaccines.Vaccine{ID: 1, PetID: 1, Name: "Rabies", NextDueDate: ptr(due)})
	ctx := context.Background()

	before := testutil.ToFloat64(remindersFired.WithLabelValues("delivered"))

	p := Payload{VaccineID: 1, PetID: 1, OffsetDays: 1, DisplayName: "Rabies", DueDate: due}
	f.svc.OnFire(ctx, schedule.TriggerID(1, 1), p)
	// entrega duplicada: reemplaza
	f.svc.OnFire(ctx, schedule.TriggerID(1, 1), p)

	items, err := f.svc.Inbox(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Vaccine due tomorrow", items[0].Title)
	assert.Equal(t, "Milo's Rabies vaccine is due tomorrow", items[0].Text)
	assert.Equal(t, int64(1001), items[0].TriggerID)
	assert.NotEmpty(t, items[0].ID)

	assert.Equal(t, before+2, testutil.ToFloat64(remindersFired.WithLabelValues("delivered")))

	other, err := f.svc.Inbox(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestService_OnFireAbsorbsDeletedAndStale(t *testing.T) {
	due := time.Date(2025, 3, 20, 0, 0, 0, 0, utc)
	f := newServiceFixture(vaccines.Vaccine{ID: 1, PetID: 1, Name: "Rabies", NextDueDate: ptr(due)})
	ctx := context.Background()

	// vacuna borrada
	f.svc.OnFire(ctx, 99000, Payload{VaccineID: 99, DueDate: due})
	// trigger de un vencimiento anterior (la vacuna fue pospuesta)
	f.svc.OnFire(ctx, 1003, Payload{VaccineID: 1, OffsetDays: 3, DueDate: due.AddDate(0, 0, -7)})

	items, err := f.svc.Inbox(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestService_CancelForVaccineDismissesInbox(t *testing.T) {
	due := time.Date(2025, 3, 20, 0, 0, 0, 0, utc)
	f := newServiceFixture(vaccines.Vaccine{ID: 1, PetID: 1, Name: "Rabies", NextDueDate: ptr(due)})
	ctx := context.Background()

	_, err := f.svc.ScheduleVaccine(ctx, 1)
	require.NoError(t, err)
	f.svc.OnFire(ctx, 1007, Payload{VaccineID: 1, OffsetDays: 7, DueDate: due})

	require.NoError(t, f.svc.CancelForVaccine(ctx, 1))
	assert.Empty(t, f.timer.ids())
	items, _ := f.svc.Inbox(ctx, "owner-1")
	assert.Empty(t, items)
}

func TestService_MarkDoneThenPostponeFlow(t *testing.T) {
	f := newServiceFixture(vaccines.Vaccine{
		ID: 1, PetID: 1, Name: "Rabies",
		NextDueDate: ptr(baseNow.AddDate(0, 0, 1)), IsRecurring: true, RecurrenceMonths: 12,
	})
	ctx := context.Background()

	done, err := f.svc.OnMarkDone(ctx, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, done.Vaccine.NextDueDate)

	post, err := f.svc.OnPostpone(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, done.Vaccine.NextDueDate.AddDate(0, 0, 7), *post.Vaccine.NextDueDate)
}

func TestReminderText(t *testing.T) {
	assert.Equal(t, "Vaccine due today", ReminderTitle(0))
	assert.Equal(t, "Vaccine due soon", ReminderTitle(7))
	assert.Equal(t, "Nala's FVRCP vaccine is due today", ReminderText("Nala", "FVRCP", 0))
	assert.Equal(t, "Nala's FVRCP vaccine is due in 14 days", ReminderText("Nala", "FVRCP", 14))
}

func TestSettings_ValidateAndNormalize(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())
	assert.NoError(t, Settings{Offsets: []int{}, NotificationHour: 23, NotificationMinute: 59}.Validate())
	assert.ErrorIs(t, Settings{Offsets: []int{-1}}.Validate(), ErrInvalidSettings)
	assert.ErrorIs(t, Settings{NotificationMinute: 60}.Validate(), ErrInvalidSettings)

	n := Settings{Offsets: []int{14, 0, 14, 3}}.Normalized()
	assert.Equal(t, []int{0, 3, 14}, n.Offsets)

	// DefaultSettings devuelve una copia
	d := DefaultSettings()
	d.Offsets[0] = 99
	assert.Equal(t, 0, DefaultSettings().Offsets[0])
}
