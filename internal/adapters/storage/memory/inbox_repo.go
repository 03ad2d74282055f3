package memory

import (
	"context"
	"sort"
	"sync"

	"pet-vaccine-reminders/internal/domain/reminders"
)

// inboxRepo indexa por TriggerID: una entrega duplicada reemplaza la anterior.
type inboxRepo struct {
	mu        sync.RWMutex
	byTrigger map[int64]reminders.FiredReminder
}

func NewInboxRepo() reminders.Inbox {
	return &inboxRepo{
		byTrigger: make(map[int64]reminders.FiredReminder),
	}
}

func (r *inboxRepo) Put(ctx context.Context, fr reminders.FiredReminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byTrigger[fr.TriggerID] = fr
	return nil
}

func (r *inboxRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]reminders.FiredReminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]reminders.FiredReminder, 0)
	for _, fr := range r.byTrigger {
		if fr.OwnerUserID == ownerUserID {
			out = append(out, fr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FiredAt.Equal(out[j].FiredAt) {
			return out[i].TriggerID < out[j].TriggerID
		}
		return out[i].FiredAt.After(out[j].FiredAt)
	})
	return out, nil
}

func (r *inboxRepo) DismissVaccine(ctx context.Context, vaccineID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, fr := range r.byTrigger {
		if fr.VaccineID == vaccineID {
			delete(r.byTrigger, id)
		}
	}
	return nil
}
