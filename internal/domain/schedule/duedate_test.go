package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDue(t *testing.T) {
	utc := time.UTC

	tests := []struct {
		name   string
		from   time.Time
		months int
		want   time.Time
	}{
		{
			name:   "keeps day of month",
			from:   time.Date(2026, time.March, 15, 10, 30, 0, 0, utc),
			months: 3,
			want:   time.Date(2026, time.June, 15, 10, 30, 0, 0, utc),
		},
		{
			name:   "clamps to end of february",
			from:   time.Date(2026, time.January, 31, 9, 0, 0, 0, utc),
			months: 1,
			want:   time.Date(2026, time.February, 28, 9, 0, 0, 0, utc),
		},
		{
			name:   "clamps to leap day",
			from:   time.Date(2028, time.January, 31, 9, 0, 0, 0, utc),
			months: 1,
			want:   time.Date(2028, time.February, 29, 9, 0, 0, 0, utc),
		},
		{
			name:   "crosses year boundary",
			from:   time.Date(2026, time.November, 30, 0, 0, 0, 0, utc),
			months: 3,
			want:   time.Date(2027, time.February, 28, 0, 0, 0, 0, utc),
		},
		{
			name:   "twelve months from leap day",
			from:   time.Date(2028, time.February, 29, 0, 0, 0, 0, utc),
			months: 12,
			want:   time.Date(2029, time.February, 28, 0, 0, 0, 0, utc),
		},
		{
			name:   "thirty day month",
			from:   time.Date(2026, time.March, 31, 0, 0, 0, 0, utc),
			months: 1,
			want:   time.Date(2026, time.April, 30, 0, 0, 0, 0, utc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDue(tt.from, tt.months)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestNextDue_RejectsNonPositive(t *testing.T) {
	from := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)

	_, err := NextDue(from, 0)
	assert.ErrorIs(t, err, ErrInvalidRecurrence)

	_, err = NextDue(from, -2)
	assert.ErrorIs(t, err, ErrInvalidRecurrence)
}

func TestNextDue_EveryDayOfYear(t *testing.T) {
	start := time.Date(2027, time.January, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 366; i++ {
		from := start.AddDate(0, 0, i)
		for months := 1; months <= 24; months++ {
			got, err := NextDue(from, months)
			require.NoError(t, err)

			wantMonth := (int(from.Month())-1+months)%12 + 1
			assert.Equal(t, time.Month(wantMonth), got.Month(), "from %s +%d", from, months)

			if got.Day() != from.Day() {
				// solo puede diferir si se ajustó al último día del mes destino
				last := daysIn(got.Year(), got.Month(), time.UTC)
				assert.Equal(t, last, got.Day(), "from %s +%d", from, months)
				assert.Greater(t, from.Day(), last)
			}
		}
	}
}
