package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pet-vaccine-reminders/internal/domain/vaccines"
)

type VaccinesRepo struct {
	db *sql.DB
}

func NewVaccinesRepo(db *sql.DB) *VaccinesRepo {
	return &VaccinesRepo{db: db}
}

const vaccineColumns = `
	id, pet_id, name, notes,
	administered_at, next_due_at,
	is_recurring, recurrence_months,
	created_at, updated_at`

func (r *VaccinesRepo) Create(ctx context.Context, v vaccines.Vaccine) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO vaccines (
			pet_id, name, notes,
			administered_at, next_due_at,
			is_recurring, recurrence_months,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`,
		v.PetID,
		v.Name,
		v.Notes,
		toNullTime(v.AdministeredDate),
		toNullTime(v.NextDueDate),
		v.IsRecurring,
		v.RecurrenceMonths,
		v.CreatedAt,
		v.UpdatedAt,
	).Scan(&id)
	return id, err
}

func (r *VaccinesRepo) GetByID(ctx context.Context, id int64) (vaccines.Vaccine, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+vaccineColumns+` FROM vaccines WHERE id = $1`, id)

	v, err := scanVaccine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return vaccines.Vaccine{}, vaccines.ErrNotFound
	}
	return v, err
}

// Update escribe la fila completa en un solo UPDATE.
func (r *VaccinesRepo) Update(ctx context.Context, v vaccines.Vaccine) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE vaccines
		SET
			name = $2,
			notes = $3,
			administered_at = $4,
			next_due_at = $5,
			is_recurring = $6,
			recurrence_months = $7,
			updated_at = $8
		WHERE id = $1
	`,
		v.ID,
		v.Name,
		v.Notes,
		toNullTime(v.AdministeredDate),
		toNullTime(v.NextDueDate),
		v.IsRecurring,
		v.RecurrenceMonths,
		v.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return vaccines.ErrNotFound
	}
	return nil
}

func (r *VaccinesRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vaccines WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return vaccines.ErrNotFound
	}
	return nil
}

func (r *VaccinesRepo) ListByPet(ctx context.Context, petID int64) ([]vaccines.Vaccine, error) {
	return r.list(ctx, `
		SELECT `+vaccineColumns+`
		FROM vaccines
		WHERE pet_id = $1
		ORDER BY id ASC
	`, petID)
}

func (r *VaccinesRepo) ListFutureDue(ctx context.Context, now time.Time) ([]vaccines.Vaccine, error) {
	return r.list(ctx, `
		SELECT `+vaccineColumns+`
		FROM vaccines
		WHERE next_due_at > $1
		ORDER BY next_due_at ASC, id ASC
	`, now)
}

func (r *VaccinesRepo) ListAdministered(ctx context.Context, petID int64) ([]vaccines.Vaccine, error) {
	return r.list(ctx, `
		SELECT `+vaccineColumns+`
		FROM vaccines
		WHERE pet_id = $1 AND administered_at IS NOT NULL
		ORDER BY administered_at DESC, id DESC
	`, petID)
}

func (r *VaccinesRepo) list(ctx context.Context, query string, args ...any) ([]vaccines.Vaccine, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]vaccines.Vaccine, 0)
	for rows.Next() {
		v, err := scanVaccine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVaccine(s scanner) (vaccines.Vaccine, error) {
	var v vaccines.Vaccine
	var administered, due sql.NullTime
	if err := s.Scan(
		&v.ID,
		&v.PetID,
		&v.Name,
		&v.Notes,
		&administered,
		&due,
		&v.IsRecurring,
		&v.RecurrenceMonths,
		&v.CreatedAt,
		&v.UpdatedAt,
	); err != nil {
		return vaccines.Vaccine{}, err
	}
	v.AdministeredDate = fromNullTime(administered)
	v.NextDueDate = fromNullTime(due)
	return v, nil
}
