package vaccines

import (
	"context"
	"fmt"
	"sort"
)

// PetVaccine es una vacuna junto al nombre de su mascota.
type PetVaccine struct {
	Vaccine
	PetName string
}

// Upcoming devuelve las vacunas con vencimiento futuro de todas las mascotas del usuario,
// la más próxima primero.
func (s *Service) Upcoming(ctx context.Context, ownerUserID string) ([]PetVaccine, error) {
	now := s.now()
	out, err := s.ownerVaccines(ctx, ownerUserID, func(v Vaccine) bool { return v.HasFutureDue(now) })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := *out[i].NextDueDate, *out[j].NextDueDate
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// OwnerHistory devuelve las vacunas aplicadas de todas las mascotas del usuario,
// la más reciente primero.
func (s *Service) OwnerHistory(ctx context.Context, ownerUserID string) ([]PetVaccine, error) {
	out, err := s.ownerVaccines(ctx, ownerUserID, func(v Vaccine) bool { return v.AdministeredDate != nil })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := *out[i].AdministeredDate, *out[j].AdministeredDate
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Service) ownerVaccines(ctx context.Context, ownerUserID string, keep func(Vaccine) bool) ([]PetVaccine, error) {
	owned, err := s.pets.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list pets of %s: %w", ownerUserID, err)
	}

	out := make([]PetVaccine, 0)
	for _, p := range owned {
		items, err := s.repo.ListByPet(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list vaccines of pet %d: %w", p.ID, err)
		}
		for _, v := range items {
			if keep(v) {
				out = append(out, PetVaccine{Vaccine: v, PetName: p.Name})
			}
		}
	}
	return out, nil
}
