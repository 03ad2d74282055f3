package schedule

import (
	"sort"
	"time"
)

// Trigger es un punto de disparo: el instante y el offset (días antes del vencimiento) que lo originó.
type Trigger struct {
	At         time.Time
	OffsetDays int
}

// Plan genera los triggers futuros para un vencimiento.
//
// Cada offset produce date(due) - offset días a las hour:minute en la zona de due.
// Se descartan los instantes <= now. Offsets repetidos cuentan una sola vez.
// El resultado va ordenado por instante (y por offset si empatan).
func Plan(due time.Time, offsets []int, hour, minute int, now time.Time) []Trigger {
	y, m, d := due.Date()
	loc := due.Location()

	seen := make(map[int]struct{}, len(offsets))
	out := make([]Trigger, 0, len(offsets))

	for _, off := range offsets {
		if !ValidOffset(off) {
			continue
		}
		if _, dup := seen[off]; dup {
			continue
		}
		seen[off] = struct{}{}

		at := time.Date(y, m, d-off, hour, minute, 0, 0, loc)
		if !at.After(now) {
			continue
		}
		out = append(out, Trigger{At: at, OffsetDays: off})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].OffsetDays < out[j].OffsetDays
		}
		return out[i].At.Before(out[j].At)
	})

	return out
}
