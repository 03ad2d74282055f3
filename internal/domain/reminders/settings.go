package reminders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"pet-vaccine-reminders/internal/domain/schedule"
)

var (
	ErrSettingsNotFound = errors.New("reminder settings not stored")
	ErrInvalidSettings  = errors.New("invalid reminder settings")
)

const (
	DefaultHour   = 9
	DefaultMinute = 0
)

// Settings son las preferencias de recordatorio de la instalación (una sola fila).
type Settings struct {
	// Días antes del vencimiento; 0 = el mismo día.
	Offsets            []int
	NotificationHour   int
	NotificationMinute int
	UpdatedAt          time.Time
}

func DefaultSettings() Settings {
	offs := make([]int, len(schedule.DefaultOffsets))
	copy(offs, schedule.DefaultOffsets)
	return Settings{
		Offsets:            offs,
		NotificationHour:   DefaultHour,
		NotificationMinute: DefaultMinute,
	}
}

// Validate exige offsets del catálogo y una hora del día válida.
func (s Settings) Validate() error {
	for _, o := range s.Offsets {
		if !schedule.InCatalog(o) {
			return fmt.Errorf("%w: offset %d not in %v", ErrInvalidSettings, o, schedule.Catalog)
		}
	}
	if s.NotificationHour < 0 || s.NotificationHour > 23 {
		return fmt.Errorf("%w: notification_hour must be 0-23", ErrInvalidSettings)
	}
	if s.NotificationMinute < 0 || s.NotificationMinute > 59 {
		return fmt.Errorf("%w: notification_minute must be 0-59", ErrInvalidSettings)
	}
	return nil
}

// Normalized devuelve una copia con offsets ordenados y sin repetidos.
func (s Settings) Normalized() Settings {
	seen := make(map[int]struct{}, len(s.Offsets))
	offs := make([]int, 0, len(s.Offsets))
	for _, o := range s.Offsets {
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		offs = append(offs, o)
	}
	sort.Ints(offs)
	s.Offsets = offs
	return s
}

// SettingsRepository persiste las preferencias. Get devuelve ErrSettingsNotFound si nunca se guardaron.
type SettingsRepository interface {
	Get(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

// LoadSettings lee las preferencias guardadas o los defaults si no hay.
func LoadSettings(ctx context.Context, repo SettingsRepository) (Settings, error) {
	if repo == nil {
		return DefaultSettings(), nil
	}
	st, err := repo.Get(ctx)
	if errors.Is(err, ErrSettingsNotFound) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load reminder settings: %w", err)
	}
	return st, nil
}
