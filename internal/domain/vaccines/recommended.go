package vaccines

import "pet-vaccine-reminders/internal/domain/pets"

type recommendation struct {
	Name  string
	Notes string
}

var recommendedBySpecies = map[pets.Species][]recommendation{
	pets.SpeciesDog: {
		{Name: "Rabies", Notes: "Core vaccine for dogs"},
		{Name: "Distemper (DHPP)", Notes: "Core vaccine protecting against Distemper, Hepatitis, Parvovirus, and Parainfluenza"},
		{Name: "Bordetella", Notes: "Recommended for dogs that interact with other dogs"},
		{Name: "Leptospirosis", Notes: "Recommended for dogs at risk"},
	},
	pets.SpeciesCat: {
		{Name: "Rabies", Notes: "Core vaccine for cats"},
		{Name: "FVRCP", Notes: "Core vaccine protecting against Feline Viral Rhinotracheitis, Calicivirus, and Panleukopenia"},
		{Name: "FeLV", Notes: "Recommended for outdoor cats"},
		{Name: "FIV", Notes: "Recommended for cats at risk"},
	},
}

// Recommended devuelve las vacunas sugeridas para una especie.
// Sin fechas: el vencimiento se calcula recién cuando se aplica.
func Recommended(species pets.Species, petID int64) []Vaccine {
	recs := recommendedBySpecies[species]
	out := make([]Vaccine, 0, len(recs))
	for _, r := range recs {
		out = append(out, Vaccine{PetID: petID, Name: r.Name, Notes: r.Notes})
	}
	return out
}
