package schedule

import (
	"errors"
	"time"
)

var (
	ErrInvalidRecurrence = errors.New("recurrence months must be positive")
)

// NextDue suma months meses calendario a administered.
// Conserva el día del mes y la hora; si el mes destino es más corto,
// el día se ajusta al último día de ese mes (31-ene + 1 => 28/29-feb).
func NextDue(administered time.Time, months int) (time.Time, error) {
	if months <= 0 {
		return time.Time{}, ErrInvalidRecurrence
	}

	y, m, d := administered.Date()
	hh, mm, ss := administered.Clock()
	loc := administered.Location()

	// time.Date normaliza el overflow de meses (ej: mes 14 => febrero del año siguiente).
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, loc)
	if last := daysIn(first.Year(), first.Month(), loc); d > last {
		d = last
	}

	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, administered.Nanosecond(), loc), nil
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	// día 0 del mes siguiente = último día del mes pedido
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
