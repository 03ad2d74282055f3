package reminders

import (
	"context"
	"errors"
	"time"
)

// ErrPermissionDenied: el Timer Service no puede programar callbacks precisos.
var ErrPermissionDenied = errors.New("precise scheduling not permitted")

// Payload viaja con cada trigger y vuelve en el callback de disparo.
type Payload struct {
	VaccineID   int64     `json:"vaccine_id"`
	PetID       int64     `json:"pet_id"`
	OffsetDays  int       `json:"offset_days"`
	DisplayName string    `json:"display_name"`
	DueDate     time.Time `json:"due_date"`
}

// FireFunc se invoca una vez por trigger, en o después del instante registrado.
// La entrega es at-least-once.
type FireFunc func(ctx context.Context, triggerID int64, p Payload)

// TimerService es el servicio externo que dispara callbacks futuros.
//
// Register con un id existente reemplaza la registración anterior.
// Cancel de un id inexistente no es error.
type TimerService interface {
	CanScheduleExact(ctx context.Context) bool
	Register(ctx context.Context, at time.Time, id int64, p Payload) error
	Cancel(ctx context.Context, id int64) error
}
