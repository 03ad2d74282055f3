package vaccines

import (
	"context"
	"fmt"
)

// OwnerOfPet devuelve el dueño de una mascota (pets.ErrNotFound si no existe).
func (s *Service) OwnerOfPet(ctx context.Context, petID int64) (string, error) {
	p, err := s.pets.GetByID(ctx, petID)
	if err != nil {
		return "", err
	}
	return p.OwnerUserID, nil
}

// OwnerOfVaccine devuelve el dueño de la mascota a la que pertenece la vacuna.
func (s *Service) OwnerOfVaccine(ctx context.Context, vaccineID int64) (string, error) {
	v, err := s.repo.GetByID(ctx, vaccineID)
	if err != nil {
		return "", err
	}
	owner, err := s.OwnerOfPet(ctx, v.PetID)
	if err != nil {
		return "", fmt.Errorf("pet of vaccine %d: %w", vaccineID, err)
	}
	return owner, nil
}
