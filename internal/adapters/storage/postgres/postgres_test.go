package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pet-vaccine-reminders/internal/adapters/storage/postgres"
	"pet-vaccine-reminders/internal/domain/pets"
	"pet-vaccine-reminders/internal/domain/reminders"
	"pet-vaccine-reminders/internal/domain/vaccines"
)

func setupMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var vaccineCols = []string{
	"id", "pet_id", "name", "notes",
	"administered_at", "next_due_at",
	"is_recurring", "recurrence_months",
	"created_at", "updated_at",
}

func TestMigrate(t *testing.T) {
	db, mock := setupMock(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS pets")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, postgres.Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPetsRepo_CreateReturnsID(t *testing.T) {
	db, mock := setupMock(t)
	repo := postgres.NewPetsRepo(db)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pets")).
		WithArgs("u1", "Milo", "dog", "mixed", nil, "", now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := repo.Create(context.Background(), pets.Pet{
		OwnerUserID: "u1", Name: "Milo", Species: pets.SpeciesDog, Breed: "mixed",
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPetsRepo_GetByIDNotFound(t *testing.T) {
	db, mock := setupMock(t)
	repo := postgres.NewPetsRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM pets WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 7)
	assert.ErrorIs(t, err, pets.ErrNotFound)
}

func TestPetsRepo_DeleteMissing(t *testing.T) {
	db, mock := setupMock(t)
	repo := postgres.NewPetsRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM pets WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 3), pets.ErrNotFound)
}

func TestVaccinesRepo_GetByID(t *testing.T) {
	db, mock := setupMock(t)
	repo := postgres.NewVaccinesRepo(db)
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM vaccines WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(vaccineCols).
			AddRow(int64(5), int64(1), "Rabies", "", nil, due, true, 12, ts, ts))

	v, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Rabies", v.Name)
	assert.Nil(t, v.AdministeredDate)
	require.NotNil(t, v.NextDueDate)
	assert.Equal(t, due, *v.NextDueDate)
	assert.True(t, v.Recurs())

	mock.ExpectQuery(regexp.QuoteMeta("FROM vaccines WHERE id = $1")).
		WithArgs(int64(6)).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(context.Background(), 6)
	assert.ErrorIs(t, err, vaccines.ErrNotFound)
}

func TestVaccinesRepo_UpdateWritesFullRow(t *testing.T) {
	db, mock := setupMock(t)
	repo := postgres.NewVaccinesRepo(db)
	administered := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	due := administered.AddDate(0, 3, 0)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE vaccines")).
		WithArgs(int64(5), "Rabies", "", administered, due, true, 3, administered).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), vaccines.Vaccine{
		ID: 5, Name: "Rabies",
		AdministeredDate: &administered, NextDueDate: &due,
		IsRecurring: true, RecurrenceMonths: 3,
		UpdatedAt: administered,
	})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE vaccines")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Update(context.Background(), vaccines.Vaccine{ID: 9})
	assert.ErrorIs(t, err, vaccines.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVaccinesRepo_ListFutureDue(t *testing.T) {
	db, mock := setupMock(t)
	repo := postgres.NewVaccinesRepo(db)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE next_due_at > $1")).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows(vaccineCols).
			AddRow(int64(1), int64(1), "A", "", nil, now.AddDate(0, 0, 1), false, 0, now, now).
			AddRow(int64(2), int64(1), "B", "", nil, now.AddDate(0, 0, 9), false, 0, now, now))

	items, err := repo.ListFutureDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[1].ID)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE next_due_at > $1")).
		WillReturnError(errors.New("db down"))
	_, err = repo.ListFutureDue(context.Background(), now)
	assert.Error(t, err)
}

func TestSettingsRepo(t *testing.T) {
	db, mock := setupMock(t)
	repo := postgres.NewSettingsRepo(db)
	ctx := context.Background()
	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM reminder_settings")).WillReturnError(sql.ErrNoRows)
	_, err := repo.Get(ctx)
	assert.ErrorIs(t, err, reminders.ErrSettingsNotFound)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reminder_settings")).
		WithArgs("0,3,14", 8, 30, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Save(ctx, reminders.Settings{Offsets: []int{0, 3, 14}, NotificationHour: 8, NotificationMinute: 30, UpdatedAt: ts}))

	mock.ExpectQuery(regexp.QuoteMeta("FROM reminder_settings")).
		WillReturnRows(sqlmock.NewRows([]string{"offsets", "notification_hour", "notification_minute", "updated_at"}).
			AddRow("0,3,14", 8, 30, ts))
	st, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 14}, st.Offsets)
	assert.Equal(t, 30, st.NotificationMinute)

	mock.ExpectQuery(regexp.QuoteMeta("FROM reminder_settings")).
		WillReturnRows(sqlmock.NewRows([]string{"offsets", "notification_hour", "notification_minute", "updated_at"}).
			AddRow("", 9, 0, ts))
	st, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Offsets)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInboxRepo(t *testing.T) {
	db, mock := setupMock(t)
	repo := postgres.NewInboxRepo(db)
	ctx := context.Background()
	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (trigger_id) DO UPDATE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Put(ctx, reminders.FiredReminder{TriggerID: 1001, ID: "a5c1b3a2-4c5e-4a39-9a39-5a0b1c8e7f11", VaccineID: 1, FiredAt: ts}))

	mock.ExpectQuery(regexp.QuoteMeta("FROM fired_reminders")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"trigger_id", "id", "vaccine_id", "pet_id", "owner_user_id",
			"pet_name", "vaccine_name", "offset_days", "due_date",
			"title", "body", "fired_at",
		}).AddRow(int64(1001), "a5c1b3a2-4c5e-4a39-9a39-5a0b1c8e7f11", int64(1), int64(1), "u1",
			"Milo", "Rabies", 1, ts, "Vaccine due tomorrow", "Milo's Rabies vaccine is due tomorrow", ts))
	items, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Milo's Rabies vaccine is due tomorrow", items[0].Text)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM fired_reminders WHERE vaccine_id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DismissVaccine(ctx, 1))

	require.NoError(t, mock.ExpectationsWereMet())
}
