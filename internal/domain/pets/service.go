package pets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// VaccineCleaner borra las vacunas de una mascota cancelando antes sus triggers.
type VaccineCleaner interface {
	DeleteByPet(ctx context.Context, petID int64) error
}

type Service struct {
	repo    Repository
	cleaner VaccineCleaner
	now     func() time.Time
}

func NewService(repo Repository, cleaner VaccineCleaner) *Service {
	return &Service{
		repo:    repo,
		cleaner: cleaner,
		now:     time.Now,
	}
}

type CreateInput struct {
	Name      string
	Species   string
	Breed     string
	BirthDate *time.Time
	Notes     string
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Pet, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return Pet{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Name) == "" {
		return Pet{}, ErrInvalidInput
	}
	sp, ok := ParseSpecies(strings.ToLower(strings.TrimSpace(in.Species)))
	if !ok {
		return Pet{}, ErrInvalidInput
	}

	now := s.now()
	p := Pet{
		OwnerUserID: ownerUserID,
		Name:        strings.TrimSpace(in.Name),
		Species:     sp,
		Breed:       strings.TrimSpace(in.Breed),
		BirthDate:   in.BirthDate,
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return Pet{}, fmt.Errorf("create pet: %w", err)
	}
	p.ID = id
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (Pet, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Pet, error) {
	return s.repo.ListByOwner(ctx, ownerUserID)
}

// OptionalDate distingue "no enviado" de "null" en un PATCH.
type OptionalDate struct {
	Present bool
	Value   *time.Time
}

type UpdateInput struct {
	// nil = no tocar
	Name      *string
	Species   *string
	Breed     *string
	BirthDate OptionalDate
	Notes     *string
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Pet, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Pet{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Pet{}, ErrInvalidInput
		}
		p.Name = name
	}
	if in.Species != nil {
		sp, ok := ParseSpecies(strings.ToLower(strings.TrimSpace(*in.Species)))
		if !ok {
			return Pet{}, ErrInvalidInput
		}
		p.Species = sp
	}
	if in.Breed != nil {
		p.Breed = strings.TrimSpace(*in.Breed)
	}
	if in.BirthDate.Present {
		p.BirthDate = in.BirthDate.Value
	}
	if in.Notes != nil {
		p.Notes = strings.TrimSpace(*in.Notes)
	}
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return Pet{}, fmt.Errorf("update pet %d: %w", id, err)
	}
	return p, nil
}

// Delete borra la mascota. Primero limpia sus vacunas (y sus triggers pendientes).
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if s.cleaner != nil {
		if err := s.cleaner.DeleteByPet(ctx, id); err != nil {
			return fmt.Errorf("delete vaccines of pet %d: %w", id, err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete pet %d: %w", id, err)
	}
	return nil
}
