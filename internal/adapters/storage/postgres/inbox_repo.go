package postgres

import (
	"context"
	"database/sql"

	"pet-vaccine-reminders/internal/domain/reminders"
)

// InboxRepo persiste recordatorios disparados. trigger_id es la PK: un duplicado reemplaza.
type InboxRepo struct {
	db *sql.DB
}

func NewInboxRepo(db *sql.DB) *InboxRepo {
	return &InboxRepo{db: db}
}

func (r *InboxRepo) Put(ctx context.Context, fr reminders.FiredReminder) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fired_reminders (
			trigger_id, id, vaccine_id, pet_id, owner_user_id,
			pet_name, vaccine_name, offset_days, due_date,
			title, body, fired_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (trigger_id) DO UPDATE SET
			id = EXCLUDED.id,
			vaccine_id = EXCLUDED.vaccine_id,
			pet_id = EXCLUDED.pet_id,
			owner_user_id = EXCLUDED.owner_user_id,
			pet_name = EXCLUDED.pet_name,
			vaccine_name = EXCLUDED.vaccine_name,
			offset_days = EXCLUDED.offset_days,
			due_date = EXCLUDED.due_date,
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			fired_at = EXCLUDED.fired_at
	`,
		fr.TriggerID,
		fr.ID,
		fr.VaccineID,
		fr.PetID,
		fr.OwnerUserID,
		fr.PetName,
		fr.VaccineName,
		fr.OffsetDays,
		fr.DueDate,
		fr.Title,
		fr.Text,
		fr.FiredAt,
	)
	return err
}

func (r *InboxRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]reminders.FiredReminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			trigger_id, id, vaccine_id, pet_id, owner_user_id,
			pet_name, vaccine_name, offset_days, due_date,
			title, body, fired_at
		FROM fired_reminders
		WHERE owner_user_id = $1
		ORDER BY fired_at DESC, trigger_id ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]reminders.FiredReminder, 0)
	for rows.Next() {
		var fr reminders.FiredReminder
		if err := rows.Scan(
			&fr.TriggerID,
			&fr.ID,
			&fr.VaccineID,
			&fr.PetID,
			&fr.OwnerUserID,
			&fr.PetName,
			&fr.VaccineName,
			&fr.OffsetDays,
			&fr.DueDate,
			&fr.Title,
			&fr.Text,
			&fr.FiredAt,
		); err != nil {
			return nil, err
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}

func (r *InboxRepo) DismissVaccine(ctx context.Context, vaccineID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM fired_reminders WHERE vaccine_id = $1`, vaccineID)
	return err
}
