package reminders

import (
	"context"
	"sort"
	"sync"
	"time"

	"pet-vaccine-reminders/internal/domain/pets"
	"pet-vaccine-reminders/internal/domain/vaccines"
)

type registration struct {
	At      time.Time
	Payload Payload
}

type fakeTimer struct {
	mu sync.Mutex

	inexact        bool
	denyOnRegister bool
	registerErr    map[int64]error
	cancelErr      error

	regs    map[int64]registration
	cancels []int64
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{regs: map[int64]registration{}, registerErr: map[int64]error{}}
}

func (t *fakeTimer) CanScheduleExact(context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.inexact
}

func (t *fakeTimer) Register(_ context.Context, at time.Time, id int64, p Payload) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.denyOnRegister {
		return ErrPermissionDenied
	}
	if err := t.registerErr[id]; err != nil {
		return err
	}
	t.regs[id] = registration{At: at, Payload: p}
	return nil
}

func (t *fakeTimer) Cancel(_ context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancels = append(t.cancels, id)
	if t.cancelErr != nil {
		return t.cancelErr
	}
	delete(t.regs, id)
	return nil
}

func (t *fakeTimer) ids() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]int64, 0, len(t.regs))
	for id := range t.regs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *fakeTimer) cancelCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cancels)
}

type fakeStore struct {
	mu        sync.Mutex
	byID      map[int64]vaccines.Vaccine
	updates   int
	listErr   error
	updateErr error
}

func newFakeStore(items ...vaccines.Vaccine) *fakeStore {
	s := &fakeStore{byID: map[int64]vaccines.Vaccine{}}
	for _, v := range items {
		s.byID[v.ID] = v
	}
	return s
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (vaccines.Vaccine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	if !ok {
		return vaccines.Vaccine{}, vaccines.ErrNotFound
	}
	return v, nil
}

func (s *fakeStore) Update(_ context.Context, v vaccines.Vaccine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.byID[v.ID]; !ok {
		return vaccines.ErrNotFound
	}
	s.byID[v.ID] = v
	s.updates++
	return nil
}

func (s *fakeStore) ListFutureDue(_ context.Context, now time.Time) ([]vaccines.Vaccine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]vaccines.Vaccine, 0)
	for _, v := range s.byID {
		if v.HasFutureDue(now) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) get(id int64) vaccines.Vaccine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}

type fakeSettings struct {
	mu sync.Mutex
	st *Settings
}

func (f *fakeSettings) Get(context.Context) (Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.st == nil {
		return Settings{}, ErrSettingsNotFound
	}
	return *f.st, nil
}

func (f *fakeSettings) Save(_ context.Context, s Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st = &s
	return nil
}

type fakeInbox struct {
	mu        sync.Mutex
	byTrigger map[int64]FiredReminder
	dismissed []int64
}

func newFakeInbox() *fakeInbox { return &fakeInbox{byTrigger: map[int64]FiredReminder{}} }

func (f *fakeInbox) Put(_ context.Context, r FiredReminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byTrigger[r.TriggerID] = r
	return nil
}

func (f *fakeInbox) ListByOwner(_ context.Context, owner string) ([]FiredReminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FiredReminder, 0)
	for _, r := range f.byTrigger {
		if r.OwnerUserID == owner {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeInbox) DismissVaccine(_ context.Context, vaccineID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismissed = append(f.dismissed, vaccineID)
	for id, r := range f.byTrigger {
		if r.VaccineID == vaccineID {
			delete(f.byTrigger, id)
		}
	}
	return nil
}

type petsStub map[int64]pets.Pet

func (p petsStub) GetByID(_ context.Context, id int64) (pets.Pet, error) {
	pet, ok := p[id]
	if !ok {
		return pets.Pet{}, pets.ErrNotFound
	}
	return pet, nil
}

func ptr(t time.Time) *time.Time { return &t }
