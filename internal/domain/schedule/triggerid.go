package schedule

// OffsetLimit acota los offsets: vaccineID*OffsetLimit + offset no colisiona
// entre vacunas mientras 0 <= offset < OffsetLimit.
const OffsetLimit = 1000

// Catalog es el conjunto fijo de offsets soportados (días antes del vencimiento).
var Catalog = []int{0, 1, 3, 7, 14}

// DefaultOffsets se usan cuando no hay settings guardados.
var DefaultOffsets = []int{0, 1, 3, 7}

func ValidOffset(offsetDays int) bool {
	return offsetDays >= 0 && offsetDays < OffsetLimit
}

func InCatalog(offsetDays int) bool {
	for _, o := range Catalog {
		if o == offsetDays {
			return true
		}
	}
	return false
}

// TriggerID devuelve la dirección única de un trigger (vacuna, offset).
// El caller garantiza ValidOffset(offsetDays).
func TriggerID(vaccineID int64, offsetDays int) int64 {
	return vaccineID*OffsetLimit + int64(offsetDays)
}

// CatalogIDs re-deriva todos los IDs posibles de una vacuna, uno por offset del catálogo.
func CatalogIDs(vaccineID int64) []int64 {
	out := make([]int64, 0, len(Catalog))
	for _, o := range Catalog {
		out = append(out, TriggerID(vaccineID, o))
	}
	return out
}
