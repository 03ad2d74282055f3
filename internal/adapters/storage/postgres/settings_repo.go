package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pet-vaccine-reminders/internal/domain/reminders"
)

// SettingsRepo guarda las preferencias en la fila única id=1. Offsets van como CSV ("0,1,3,7").
type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) Get(ctx context.Context) (reminders.Settings, error) {
	var (
		st      reminders.Settings
		offsets string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT offsets, notification_hour, notification_minute, updated_at
		FROM reminder_settings
		WHERE id = 1
	`).Scan(&offsets, &st.NotificationHour, &st.NotificationMinute, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return reminders.Settings{}, reminders.ErrSettingsNotFound
	}
	if err != nil {
		return reminders.Settings{}, err
	}

	st.Offsets, err = decodeOffsets(offsets)
	if err != nil {
		return reminders.Settings{}, err
	}
	return st, nil
}

func (r *SettingsRepo) Save(ctx context.Context, st reminders.Settings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminder_settings (id, offsets, notification_hour, notification_minute, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			offsets = EXCLUDED.offsets,
			notification_hour = EXCLUDED.notification_hour,
			notification_minute = EXCLUDED.notification_minute,
			updated_at = EXCLUDED.updated_at
	`, encodeOffsets(st.Offsets), st.NotificationHour, st.NotificationMinute, st.UpdatedAt)
	return err
}

func encodeOffsets(offs []int) string {
	parts := make([]string, 0, len(offs))
	for _, o := range offs {
		parts = append(parts, strconv.Itoa(o))
	}
	return strings.Join(parts, ",")
}

func decodeOffsets(s string) ([]int, error) {
	out := make([]int, 0)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("decode offsets %q: %w", s, err)
		}
		out = append(out, n)
	}
	return out, nil
}
