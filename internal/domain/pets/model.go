package pets

import "time"

// Species define las especies soportadas.
// @Enum dog, cat
type Species string

const (
	SpeciesDog   Species = "dog"
	SpeciesCat   Species = "cat"
	SpeciesOther Species = "other"
)

func ParseSpecies(s string) (Species, bool) {
	switch Species(s) {
	case SpeciesDog, SpeciesCat, SpeciesOther:
		return Species(s), true
	default:
		return "", false
	}
}

// Pet representa el perfil básico de una mascota. Las vacunas cuelgan de ella.
type Pet struct {
	ID          int64
	OwnerUserID string

	Name    string
	Species Species
	Breed   string

	BirthDate *time.Time
	Notes     string

	CreatedAt time.Time
	UpdatedAt time.Time
}
