package vaccines

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pet-vaccine-reminders/internal/domain/pets"
	"pet-vaccine-reminders/internal/domain/schedule"
	"pet-vaccine-reminders/internal/platform/logger"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// ReminderScheduler es lo que el editor necesita del motor de recordatorios.
// Lo implementa reminders.Service; la interfaz vive acá para no tener ciclo de imports.
type ReminderScheduler interface {
	RescheduleVaccine(ctx context.Context, v Vaccine) error
	CancelForVaccine(ctx context.Context, vaccineID int64) error
}

// PetLookup resuelve mascotas (pets.Repository o pets.Service sirven).
type PetLookup interface {
	GetByID(ctx context.Context, id int64) (pets.Pet, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]pets.Pet, error)
}

type Service struct {
	repo      Repository
	pets      PetLookup
	reminders ReminderScheduler
	log       logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, petLookup PetLookup, reminders ReminderScheduler, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:      repo,
		pets:      petLookup,
		reminders: reminders,
		log:       log.With(map[string]any{"component": "vaccines"}),
		now:       time.Now,
	}
}

type CreateInput struct {
	Name             string
	Notes            string
	AdministeredDate *time.Time
	NextDueDate      *time.Time
	IsRecurring      bool
	RecurrenceMonths int
}

func (s *Service) Create(ctx context.Context, petID int64, in CreateInput) (Vaccine, error) {
	if _, err := s.pets.GetByID(ctx, petID); err != nil {
		return Vaccine{}, err
	}

	now := s.now()
	v := Vaccine{
		PetID:            petID,
		Name:             in.Name,
		Notes:            in.Notes,
		AdministeredDate: in.AdministeredDate,
		NextDueDate:      in.NextDueDate,
		IsRecurring:      in.IsRecurring,
		RecurrenceMonths: in.RecurrenceMonths,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := normalize(&v, in.NextDueDate == nil); err != nil {
		return Vaccine{}, err
	}

	id, err := s.repo.Create(ctx, v)
	if err != nil {
		return Vaccine{}, fmt.Errorf("create vaccine: %w", err)
	}
	v.ID = id

	s.reschedule(ctx, v)
	return v, nil
}

// OptionalDate distingue "no enviado" de "null" en un PATCH.
type OptionalDate struct {
	Present bool
	Value   *time.Time
}

type UpdateInput struct {
	// nil / !Present = no tocar
	Name             *string
	Notes            *string
	AdministeredDate OptionalDate
	NextDueDate      OptionalDate
	IsRecurring      *bool
	RecurrenceMonths *int
}

// Update aplica el PATCH sobre el registro actual y lo guarda completo.
// Si cambia la aplicación o la recurrencia de una vacuna recurrente aplicada y no
// se envía next_due_date, el vencimiento se recalcula.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Vaccine, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Vaccine{}, err
	}

	scheduleInputsChanged := false
	if in.Name != nil {
		v.Name = *in.Name
	}
	if in.Notes != nil {
		v.Notes = *in.Notes
	}
	if in.AdministeredDate.Present {
		v.AdministeredDate = in.AdministeredDate.Value
		scheduleInputsChanged = true
	}
	if in.IsRecurring != nil {
		v.IsRecurring = *in.IsRecurring
		scheduleInputsChanged = true
	}
	if in.RecurrenceMonths != nil {
		v.RecurrenceMonths = *in.RecurrenceMonths
		scheduleInputsChanged = true
	}
	if in.NextDueDate.Present {
		v.NextDueDate = in.NextDueDate.Value
	}

	recompute := !in.NextDueDate.Present && scheduleInputsChanged &&
		v.AdministeredDate != nil && v.Recurs()
	if recompute {
		v.NextDueDate = nil
	}
	if err := normalize(&v, recompute); err != nil {
		return Vaccine{}, err
	}
	v.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, v); err != nil {
		return Vaccine{}, fmt.Errorf("update vaccine %d: %w", id, err)
	}

	s.reschedule(ctx, v)
	return v, nil
}

// Delete cancela los triggers de la vacuna y después la borra.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.cancel(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete vaccine %d: %w", id, err)
	}
	return nil
}

// DeleteByPet implementa pets.VaccineCleaner.
func (s *Service) DeleteByPet(ctx context.Context, petID int64) error {
	items, err := s.repo.ListByPet(ctx, petID)
	if err != nil {
		return fmt.Errorf("list vaccines of pet %d: %w", petID, err)
	}
	for _, v := range items {
		if err := s.Delete(ctx, v.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (Vaccine, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPet(ctx context.Context, petID int64) ([]Vaccine, error) {
	return s.repo.ListByPet(ctx, petID)
}

// History devuelve las vacunas aplicadas, la más reciente primero.
func (s *Service) History(ctx context.Context, petID int64) ([]Vaccine, error) {
	items, err := s.repo.ListAdministered(ctx, petID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].AdministeredDate.After(*items[j].AdministeredDate)
	})
	return items, nil
}

// AddRecommended agrega las vacunas sugeridas para la especie de la mascota.
// Las que ya existen (mismo nombre) se saltean, así que repetir la llamada no duplica.
func (s *Service) AddRecommended(ctx context.Context, petID int64) ([]Vaccine, error) {
	p, err := s.pets.GetByID(ctx, petID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByPet(ctx, petID)
	if err != nil {
		return nil, fmt.Errorf("list vaccines of pet %d: %w", petID, err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		have[strings.ToLower(strings.TrimSpace(v.Name))] = struct{}{}
	}

	out := make([]Vaccine, 0)
	for _, rec := range Recommended(p.Species, petID) {
		if _, ok := have[strings.ToLower(rec.Name)]; ok {
			continue
		}
		v, err := s.Create(ctx, petID, CreateInput{Name: rec.Name, Notes: rec.Notes})
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// normalize valida el registro en el borde de edición.
// Si computeDue y la vacuna es recurrente con fecha de aplicación, calcula NextDueDate.
func normalize(v *Vaccine, computeDue bool) error {
	v.Name = strings.TrimSpace(v.Name)
	v.Notes = strings.TrimSpace(v.Notes)
	if v.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if v.RecurrenceMonths < 0 || v.RecurrenceMonths > MaxRecurrenceMonths {
		return fmt.Errorf("%w: recurrence_months must be between 0 and %d", ErrInvalidInput, MaxRecurrenceMonths)
	}
	if !v.IsRecurring {
		v.RecurrenceMonths = 0
	}

	if computeDue && v.NextDueDate == nil && v.AdministeredDate != nil && v.Recurs() {
		due, err := schedule.NextDue(*v.AdministeredDate, v.RecurrenceMonths)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		v.NextDueDate = &due
	}

	if v.NextDueDate != nil && v.AdministeredDate != nil && !v.NextDueDate.After(*v.AdministeredDate) {
		return fmt.Errorf("%w: next_due_date must be after administered_date", ErrInvalidInput)
	}
	return nil
}

// reschedule solo loguea errores; la reconciliación periódica vuelve a registrar.
func (s *Service) reschedule(ctx context.Context, v Vaccine) {
	if s.reminders == nil {
		return
	}
	if err := s.reminders.RescheduleVaccine(ctx, v); err != nil {
		s.log.Warn("reschedule after edit failed", map[string]any{
			"vaccine_id": v.ID,
			"error":      err,
		})
	}
}

func (s *Service) cancel(ctx context.Context, id int64) error {
	if s.reminders == nil {
		return nil
	}
	if err := s.reminders.CancelForVaccine(ctx, id); err != nil {
		return fmt.Errorf("cancel reminders of vaccine %d: %w", id, err)
	}
	return nil
}
