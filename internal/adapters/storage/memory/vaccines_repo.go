package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pet-vaccine-reminders/internal/domain/vaccines"
)

// vaccineRepo guarda registros completos bajo un mutex: cada Update es una
// escritura atómica de la fila entera.
type vaccineRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]vaccines.Vaccine
}

func NewVaccineRepo() vaccines.Repository {
	return &vaccineRepo{
		byID: make(map[int64]vaccines.Vaccine),
	}
}

func (r *vaccineRepo) Create(ctx context.Context, v vaccines.Vaccine) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	v.ID = r.nextID
	r.byID[v.ID] = cloneVaccine(v)
	return v.ID, nil
}

func (r *vaccineRepo) GetByID(ctx context.Context, id int64) (vaccines.Vaccine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.byID[id]
	if !ok {
		return vaccines.Vaccine{}, vaccines.ErrNotFound
	}
	return cloneVaccine(v), nil
}

func (r *vaccineRepo) Update(ctx context.Context, v vaccines.Vaccine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[v.ID]; !ok {
		return vaccines.ErrNotFound
	}
	r.byID[v.ID] = cloneVaccine(v)
	return nil
}

func (r *vaccineRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return vaccines.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *vaccineRepo) ListByPet(ctx context.Context, petID int64) ([]vaccines.Vaccine, error) {
	out := r.filter(func(v vaccines.Vaccine) bool { return v.PetID == petID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *vaccineRepo) ListFutureDue(ctx context.Context, now time.Time) ([]vaccines.Vaccine, error) {
	out := r.filter(func(v vaccines.Vaccine) bool { return v.HasFutureDue(now) })
	sort.Slice(out, func(i, j int) bool {
		if out[i].NextDueDate.Equal(*out[j].NextDueDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].NextDueDate.Before(*out[j].NextDueDate)
	})
	return out, nil
}

func (r *vaccineRepo) ListAdministered(ctx context.Context, petID int64) ([]vaccines.Vaccine, error) {
	out := r.filter(func(v vaccines.Vaccine) bool {
		return v.PetID == petID && v.AdministeredDate != nil
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].AdministeredDate.After(*out[j].AdministeredDate)
	})
	return out, nil
}

func (r *vaccineRepo) filter(keep func(vaccines.Vaccine) bool) []vaccines.Vaccine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]vaccines.Vaccine, 0)
	for _, v := range r.byID {
		if keep(v) {
			out = append(out, cloneVaccine(v))
		}
	}
	return out
}

// cloneVaccine copia los punteros de fecha para que nadie mute el registro guardado.
func cloneVaccine(v vaccines.Vaccine) vaccines.Vaccine {
	if v.AdministeredDate != nil {
		t := *v.AdministeredDate
		v.AdministeredDate = &t
	}
	if v.NextDueDate != nil {
		t := *v.NextDueDate
		v.NextDueDate = &t
	}
	return v
}
