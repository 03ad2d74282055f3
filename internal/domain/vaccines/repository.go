package vaccines

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("vaccine not found")

// Repository es el record store de vacunas.
// Update reemplaza la fila completa (nunca parcial).
type Repository interface {
	Create(ctx context.Context, v Vaccine) (int64, error)
	GetByID(ctx context.Context, id int64) (Vaccine, error)
	Update(ctx context.Context, v Vaccine) error
	Delete(ctx context.Context, id int64) error

	ListByPet(ctx context.Context, petID int64) ([]Vaccine, error)
	// ListFutureDue devuelve las vacunas con NextDueDate estrictamente posterior a now.
	ListFutureDue(ctx context.Context, now time.Time) ([]Vaccine, error)
	// ListAdministered devuelve las vacunas aplicadas de la mascota, la más reciente primero.
	ListAdministered(ctx context.Context, petID int64) ([]Vaccine, error)
}
