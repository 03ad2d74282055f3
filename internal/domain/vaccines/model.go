package vaccines

import "time"

// MaxRecurrenceMonths acota la recurrencia aceptada por el editor (10 años).
const MaxRecurrenceMonths = 120

// Vaccine es el registro de una vacuna de una mascota.
//
// AdministeredDate nil = todavía no aplicada. NextDueDate nil = sin obligación pendiente.
// Si IsRecurring es false, RecurrenceMonths se ignora (se guarda en 0).
type Vaccine struct {
	ID    int64
	PetID int64

	Name  string
	Notes string

	AdministeredDate *time.Time
	NextDueDate      *time.Time

	IsRecurring      bool
	RecurrenceMonths int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Recurs indica si la vacuna regenera su vencimiento al marcarla aplicada.
func (v Vaccine) Recurs() bool {
	return v.IsRecurring && v.RecurrenceMonths > 0
}

// HasFutureDue indica si hay un vencimiento estrictamente posterior a now.
func (v Vaccine) HasFutureDue(now time.Time) bool {
	return v.NextDueDate != nil && v.NextDueDate.After(now)
}
