package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pet-vaccine-reminders/internal/domain/pets"
	"pet-vaccine-reminders/internal/domain/vaccines"
	"pet-vaccine-reminders/internal/platform/logger"
)

// Store es lo que el motor necesita del record store de vacunas.
type Store interface {
	VaccineStore
	FutureDueLister
}

// PetLookup resuelve el nombre y el dueño de la mascota para el texto del recordatorio.
type PetLookup interface {
	GetByID(ctx context.Context, id int64) (pets.Pet, error)
}

type Deps struct {
	Vaccines Store
	Pets     PetLookup
	Settings SettingsRepository
	Inbox    Inbox
	Timer    TimerService

	Location    *time.Location
	Parallelism int
	Log         logger.Logger
}

// Service es la cara del motor hacia la capa de usuario (HTTP, editor, timers).
type Service struct {
	vaccines Store
	pets     PetLookup
	settings SettingsRepository
	inbox    Inbox

	sched   *Scheduler
	coord   *Coordinator
	actions *ActionHandler

	loc *time.Location
	log logger.Logger
	now func() time.Time
}

func NewService(d Deps) *Service {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}

	sched := NewScheduler(d.Timer, loc, log)
	return &Service{
		vaccines: d.Vaccines,
		pets:     d.Pets,
		settings: d.Settings,
		inbox:    d.Inbox,
		sched:    sched,
		coord:    NewCoordinator(d.Vaccines, sched, d.Parallelism, log),
		actions:  NewActionHandler(d.Vaccines, sched, d.Settings, d.Inbox, loc, log),
		loc:      loc,
		log:      log.With(map[string]any{"component": "reminders"}),
		now:      time.Now,
	}
}

// SetClock reemplaza el reloj del servicio y de sus acciones (tests).
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.actions.now = now
}

// ScheduleVaccine cancela y vuelve a programar una vacuna con los settings actuales.
func (s *Service) ScheduleVaccine(ctx context.Context, vaccineID int64) (Outcome, error) {
	v, err := s.vaccines.GetByID(ctx, vaccineID)
	if errors.Is(err, vaccines.ErrNotFound) {
		return Outcome{}, fmt.Errorf("%w: vaccine %d", ErrNotFound, vaccineID)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("load vaccine %d: %w", vaccineID, err)
	}
	return s.reschedule(ctx, v)
}

// RescheduleVaccine implementa vaccines.ReminderScheduler (llamado tras cada edición).
func (s *Service) RescheduleVaccine(ctx context.Context, v vaccines.Vaccine) error {
	_, err := s.reschedule(ctx, v)
	return err
}

// CancelForVaccine cancela todos los triggers de la vacuna y descarta sus recordatorios mostrados.
func (s *Service) CancelForVaccine(ctx context.Context, vaccineID int64) error {
	if err := s.sched.Cancel(ctx, vaccineID); err != nil {
		return err
	}
	if s.inbox != nil {
		if err := s.inbox.DismissVaccine(ctx, vaccineID); err != nil {
			s.log.Warn("dismiss fired reminders failed", map[string]any{"vaccine_id": vaccineID, "error": err})
		}
	}
	return nil
}

func (s *Service) RescheduleAll(ctx context.Context) (BatchOutcome, error) {
	st, err := LoadSettings(ctx, s.settings)
	if err != nil {
		return BatchOutcome{}, err
	}
	return s.coord.RescheduleAll(ctx, st, s.now())
}

func (s *Service) OnMarkDone(ctx context.Context, vaccineID int64, firedOffset int) (ActionResult, error) {
	return s.actions.MarkDone(ctx, vaccineID, firedOffset)
}

func (s *Service) OnPostpone(ctx context.Context, vaccineID int64, firedOffset int) (ActionResult, error) {
	return s.actions.Postpone(ctx, vaccineID, firedOffset)
}

func (s *Service) Settings(ctx context.Context) (Settings, error) {
	return LoadSettings(ctx, s.settings)
}

// UpdateSettings guarda las preferencias y re-programa todas las vacunas con vencimiento futuro.
func (s *Service) UpdateSettings(ctx context.Context, st Settings) (Settings, BatchOutcome, error) {
	st = st.Normalized()
	if err := st.Validate(); err != nil {
		return Settings{}, BatchOutcome{}, err
	}
	st.UpdatedAt = s.now()

	if err := s.settings.Save(ctx, st); err != nil {
		return Settings{}, BatchOutcome{}, fmt.Errorf("save reminder settings: %w", err)
	}

	batch, err := s.coord.RescheduleAll(ctx, st, s.now())
	return st, batch, err
}

// Inbox devuelve los recordatorios disparados del usuario.
func (s *Service) Inbox(ctx context.Context, ownerUserID string) ([]FiredReminder, error) {
	if s.inbox == nil {
		return []FiredReminder{}, nil
	}
	return s.inbox.ListByOwner(ctx, ownerUserID)
}

// OnFire es el callback del TimerService. Deja el recordatorio en el inbox del dueño.
// Triggers de vacunas borradas o con otro vencimiento se descartan.
func (s *Service) OnFire(ctx context.Context, triggerID int64, p Payload) {
	fields := map[string]any{
		"trigger_id": triggerID,
		"vaccine_id": p.VaccineID,
		"offset":     p.OffsetDays,
	}

	v, err := s.vaccines.GetByID(ctx, p.VaccineID)
	if errors.Is(err, vaccines.ErrNotFound) {
		s.log.Info("fired trigger for deleted vaccine", fields)
		remindersFired.WithLabelValues("not_found").Inc()
		return
	}
	if err != nil {
		fields["error"] = err
		s.log.Error("load vaccine for fired trigger", fields)
		remindersFired.WithLabelValues("error").Inc()
		return
	}
	if v.NextDueDate == nil || !sameDay(*v.NextDueDate, p.DueDate, s.loc) {
		s.log.Info("stale trigger ignored", fields)
		remindersFired.WithLabelValues("stale").Inc()
		return
	}

	pet, err := s.pets.GetByID(ctx, v.PetID)
	if err != nil {
		fields["error"] = err
		s.log.Info("fired trigger without pet", fields)
		remindersFired.WithLabelValues("not_found").Inc()
		return
	}

	if s.inbox == nil {
		remindersFired.WithLabelValues("delivered").Inc()
		return
	}

	r := FiredReminder{
		ID:          uuid.NewString(),
		TriggerID:   triggerID,
		VaccineID:   v.ID,
		PetID:       pet.ID,
		OwnerUserID: pet.OwnerUserID,
		PetName:     pet.Name,
		VaccineName: v.Name,
		OffsetDays:  p.OffsetDays,
		DueDate:     v.NextDueDate.In(s.loc),
		Title:       ReminderTitle(p.OffsetDays),
		Text:        ReminderText(pet.Name, v.Name, p.OffsetDays),
		FiredAt:     s.now(),
	}
	if err := s.inbox.Put(ctx, r); err != nil {
		fields["error"] = err
		s.log.Error("store fired reminder", fields)
		remindersFired.WithLabelValues("error").Inc()
		return
	}

	remindersFired.WithLabelValues("delivered").Inc()
	s.log.Info("reminder fired", fields)
}

func (s *Service) reschedule(ctx context.Context, v vaccines.Vaccine) (Outcome, error) {
	st, err := LoadSettings(ctx, s.settings)
	if err != nil {
		return Outcome{}, err
	}
	return s.coord.Reschedule(ctx, v, st, s.now())
}
