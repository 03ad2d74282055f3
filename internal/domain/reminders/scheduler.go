package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"pet-vaccine-reminders/internal/domain/schedule"
	"pet-vaccine-reminders/internal/domain/vaccines"
	"pet-vaccine-reminders/internal/platform/logger"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusSkipped   Status = "skipped"
)

type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNoDueDate        Reason = "no_due_date"
	ReasonPermissionDenied Reason = "permission_denied"
)

// Outcome es el resultado de programar una vacuna.
type Outcome struct {
	VaccineID int64
	Status    Status
	Reason    Reason
	// Triggers registrados (vacío si todos quedaron en el pasado).
	Triggers []schedule.Trigger
	// NotifyPermission es true solo la primera vez que se ve el permiso denegado
	// desde el último schedule exitoso.
	NotifyPermission bool
}

// Scheduler traduce el plan de una vacuna en registraciones contra el TimerService.
type Scheduler struct {
	timer TimerService
	loc   *time.Location
	log   logger.Logger

	permissionNotified atomic.Bool
}

func NewScheduler(timer TimerService, loc *time.Location, log logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		timer: timer,
		loc:   loc,
		log:   log.With(map[string]any{"component": "scheduler"}),
	}
}

// Schedule registra un trigger por cada offset con instante futuro.
// Registrar un id existente reemplaza el anterior, así que llamar de nuevo es seguro.
func (s *Scheduler) Schedule(ctx context.Context, v vaccines.Vaccine, st Settings, now time.Time) (Outcome, error) {
	out := Outcome{VaccineID: v.ID}

	if v.NextDueDate == nil {
		out.Status, out.Reason = StatusSkipped, ReasonNoDueDate
		scheduleOutcomes.WithLabelValues(string(out.Status), string(out.Reason)).Inc()
		return out, nil
	}

	if !s.timer.CanScheduleExact(ctx) {
		return s.permissionDenied(out), nil
	}

	due := v.NextDueDate.In(s.loc)
	plan := schedule.Plan(due, st.Offsets, st.NotificationHour, st.NotificationMinute, now)

	registered := make([]schedule.Trigger, 0, len(plan))
	for _, tr := range plan {
		id := schedule.TriggerID(v.ID, tr.OffsetDays)
		err := s.timer.Register(ctx, tr.At, id, Payload{
			VaccineID:   v.ID,
			PetID:       v.PetID,
			OffsetDays:  tr.OffsetDays,
			DisplayName: v.Name,
			DueDate:     due,
		})
		if errors.Is(err, ErrPermissionDenied) {
			// no dejamos un plan a medias
			s.cancelIDs(ctx, registered, v.ID)
			return s.permissionDenied(out), nil
		}
		if err != nil {
			return out, fmt.Errorf("register trigger %d: %w", id, err)
		}
		triggersRegistered.Inc()
		registered = append(registered, tr)
	}

	s.permissionNotified.Store(false)

	out.Status = StatusScheduled
	out.Triggers = registered
	scheduleOutcomes.WithLabelValues(string(out.Status), string(out.Reason)).Inc()

	s.log.Debug("vaccine scheduled", map[string]any{
		"vaccine_id": v.ID,
		"due":        due.Format(time.RFC3339),
		"triggers":   len(registered),
	})
	return out, nil
}

// Cancel emite un cancel por cada offset del catálogo. Registraciones ausentes no son error.
// Los errores del adapter se juntan y se devuelven después de intentar todos.
func (s *Scheduler) Cancel(ctx context.Context, vaccineID int64) error {
	var errs []error
	for _, id := range schedule.CatalogIDs(vaccineID) {
		if err := s.timer.Cancel(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("cancel trigger %d: %w", id, err))
			continue
		}
		triggersCancelled.Inc()
	}
	return errors.Join(errs...)
}

func (s *Scheduler) permissionDenied(out Outcome) Outcome {
	out.Status, out.Reason = StatusSkipped, ReasonPermissionDenied
	out.NotifyPermission = s.permissionNotified.CompareAndSwap(false, true)
	scheduleOutcomes.WithLabelValues(string(out.Status), string(out.Reason)).Inc()

	if out.NotifyPermission {
		s.log.Warn("timer service cannot schedule exact callbacks; reminders disabled until permission is granted", map[string]any{
			"vaccine_id": out.VaccineID,
		})
	}
	return out
}

func (s *Scheduler) cancelIDs(ctx context.Context, triggers []schedule.Trigger, vaccineID int64) {
	for _, tr := range triggers {
		if err := s.timer.Cancel(ctx, schedule.TriggerID(vaccineID, tr.OffsetDays)); err != nil {
			s.log.Warn("cancel after permission denial failed", map[string]any{
				"vaccine_id": vaccineID,
				"offset":     tr.OffsetDays,
				"error":      err,
			})
		}
	}
}
