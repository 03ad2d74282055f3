package pets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]Pet
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[int64]Pet{}}
}

func (r *testRepo) Create(_ context.Context, p Pet) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	r.byID[p.ID] = p
	return p.ID, nil
}

func (r *testRepo) GetByID(_ context.Context, id int64) (Pet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return Pet{}, ErrNotFound
	}
	return p, nil
}

func (r *testRepo) ListByOwner(_ context.Context, owner string) ([]Pet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Pet, 0)
	for _, p := range r.byID {
		if p.OwnerUserID == owner {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *testRepo) Update(_ context.Context, p Pet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *testRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type recordingCleaner struct {
	petIDs []int64
	err    error
}

func (c *recordingCleaner) DeleteByPet(_ context.Context, petID int64) error {
	c.petIDs = append(c.petIDs, petID)
	return c.err
}

func newTestService(c VaccineCleaner) (*Service, *testRepo) {
	repo := newTestRepo()
	svc := NewService(repo, c)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "", CreateInput{Name: "Milo", Species: "dog"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, "u1", CreateInput{Name: "  ", Species: "dog"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, "u1", CreateInput{Name: "Milo", Species: "dragon"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err := svc.Create(ctx, "u1", CreateInput{Name: " Milo ", Species: "Dog"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Milo", p.Name)
	assert.Equal(t, SpeciesDog, p.Species)
}

func TestUpdate_PatchSemantics(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	bd := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	p, err := svc.Create(ctx, "u1", CreateInput{Name: "Milo", Species: "dog", Breed: "mixed", BirthDate: &bd})
	require.NoError(t, err)

	name := "Luna"
	updated, err := svc.Update(ctx, p.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Luna", updated.Name)
	assert.Equal(t, "mixed", updated.Breed)
	require.NotNil(t, updated.BirthDate)

	updated, err = svc.Update(ctx, p.ID, UpdateInput{BirthDate: OptionalDate{Present: true}})
	require.NoError(t, err)
	assert.Nil(t, updated.BirthDate)

	empty := ""
	_, err = svc.Update(ctx, p.ID, UpdateInput{Name: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, 99, UpdateInput{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_CascadesToVaccines(t *testing.T) {
	cleaner := &recordingCleaner{}
	svc, repo := newTestService(cleaner)
	ctx := context.Background()

	p, err := svc.Create(ctx, "u1", CreateInput{Name: "Milo", Species: "cat"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.Equal(t, []int64{p.ID}, cleaner.petIDs)
	_, err = repo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, p.ID), ErrNotFound)
}

func TestDelete_CleanerFailureKeepsPet(t *testing.T) {
	cleaner := &recordingCleaner{err: errors.New("boom")}
	svc, repo := newTestService(cleaner)
	ctx := context.Background()

	p, err := svc.Create(ctx, "u1", CreateInput{Name: "Milo", Species: "cat"})
	require.NoError(t, err)

	require.Error(t, svc.Delete(ctx, p.ID))
	_, err = repo.GetByID(ctx, p.ID)
	assert.NoError(t, err)
}
