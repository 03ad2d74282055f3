package memory

import (
	"context"
	"sync"

	"pet-vaccine-reminders/internal/domain/reminders"
)

type settingsRepo struct {
	mu sync.RWMutex
	st *reminders.Settings
}

func NewSettingsRepo() reminders.SettingsRepository {
	return &settingsRepo{}
}

func (r *settingsRepo) Get(ctx context.Context) (reminders.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.st == nil {
		return reminders.Settings{}, reminders.ErrSettingsNotFound
	}
	out := *r.st
	out.Offsets = append([]int(nil), r.st.Offsets...)
	return out, nil
}

func (r *settingsRepo) Save(ctx context.Context, s reminders.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.Offsets = append([]int(nil), s.Offsets...)
	r.st = &s
	return nil
}
