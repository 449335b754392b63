package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/spellduel/internal/game/duel"
	"github.com/cory-johannsen/spellduel/internal/game/solver"
	"github.com/cory-johannsen/spellduel/internal/storage"
)

var (
	smallPlayer = duel.Player{HP: 10, Mana: 250}
	smallBoss   = duel.Boss{HP: 13, Damage: 8}
)

// countingSolver wraps a real solver and counts calls.
type countingSolver struct {
	inner *solver.Solver
	calls int
}

func (c *countingSolver) Solve(ctx context.Context, initial *duel.State) (solver.Result, error) {
	c.calls++
	return c.inner.Solve(ctx, initial)
}

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Save(context.Context, storage.Solution) (storage.Solution, error) {
	return storage.Solution{}, errors.New("disk full")
}
func (failingStore) Get(context.Context, string) (storage.Solution, error) {
	return storage.Solution{}, errors.New("connection refused")
}
func (failingStore) List(context.Context, int) ([]storage.Solution, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) Close() error { return nil }

func newCounting(t *testing.T) *countingSolver {
	return &countingSolver{inner: solver.New(solver.Options{}, zaptest.NewLogger(t))}
}

func TestScenarioKey(t *testing.T) {
	assert.Equal(t, "p10-m250-b13-d8-normal", storage.ScenarioKey(smallPlayer, smallBoss, duel.Normal))
	assert.NotEqual(t,
		storage.ScenarioKey(smallPlayer, smallBoss, duel.Normal),
		storage.ScenarioKey(smallPlayer, smallBoss, duel.Hard))
}

func TestPrepare_FillsDerivedFields(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	s := storage.Prepare(storage.Solution{Player: smallPlayer, Boss: smallBoss, Difficulty: duel.Hard}, now)
	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.Equal(t, "p10-m250-b13-d8-hard", s.ScenarioKey)
	assert.Equal(t, time.UTC, s.CreatedAt.Location())
	assert.True(t, s.CreatedAt.Equal(now))
}

func TestMemory_SaveGetList(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrSolutionNotFound)

	first, err := m.Save(ctx, storage.Solution{Player: smallPlayer, Boss: smallBoss, ManaSpent: 300, Spells: []string{"Drain"}, CreatedAt: time.Unix(100, 0)})
	require.NoError(t, err)
	second, err := m.Save(ctx, storage.Solution{Player: smallPlayer, Boss: smallBoss, ManaSpent: 226, Spells: []string{"Poison", "Magic Missile"}, CreatedAt: time.Unix(200, 0)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "upsert keeps the original id")

	got, err := m.Get(ctx, first.ScenarioKey)
	require.NoError(t, err)
	assert.Equal(t, 226, got.ManaSpent)

	_, err = m.Save(ctx, storage.Solution{Player: smallPlayer, Boss: smallBoss, Difficulty: duel.Hard, CreatedAt: time.Unix(300, 0)})
	require.NoError(t, err)

	all, err := m.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, duel.Hard, all[0].Difficulty)

	limited, err := m.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCached_StoresThenServes(t *testing.T) {
	ctx := context.Background()
	inner := newCounting(t)
	store := storage.NewMemory()
	c := storage.NewCached(inner, store, zaptest.NewLogger(t))

	first, err := c.Solve(ctx, duel.NewState(smallPlayer, smallBoss, duel.Normal))
	require.NoError(t, err)
	assert.Equal(t, 226, first.ManaSpent())
	assert.Equal(t, 1, inner.calls)

	stored, err := store.Get(ctx, storage.ScenarioKey(smallPlayer, smallBoss, duel.Normal))
	require.NoError(t, err)
	assert.Equal(t, []string{"Poison", "Magic Missile"}, stored.Spells)
	assert.Equal(t, first.Expanded, stored.Expanded)

	second, err := c.Solve(ctx, duel.NewState(smallPlayer, smallBoss, duel.Normal))
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "second solve must be served from the store")
	assert.Equal(t, 226, second.ManaSpent())
	assert.Equal(t, 0, second.Expanded)
	assert.Equal(t, duel.BossKilledByEffects, second.Outcome)
	assert.Equal(t, []string{"Poison", "Magic Missile"}, duel.SpellNames(second.Spells()))
}

func TestCached_RejectsCorruptStoredSolution(t *testing.T) {
	ctx := context.Background()
	inner := newCounting(t)
	store := storage.NewMemory()
	_, err := store.Save(ctx, storage.Solution{
		Player: smallPlayer, Boss: smallBoss,
		ManaSpent: 53, Spells: []string{"Magic Missile"},
	})
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	c := storage.NewCached(inner, store, zap.New(core))
	res, err := c.Solve(ctx, duel.NewState(smallPlayer, smallBoss, duel.Normal))
	require.NoError(t, err)
	assert.Equal(t, 226, res.ManaSpent())
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, logs.FilterMessage("stored solution failed revalidation; solving again").Len())

	fixed, err := store.Get(ctx, storage.ScenarioKey(smallPlayer, smallBoss, duel.Normal))
	require.NoError(t, err)
	assert.Equal(t, 226, fixed.ManaSpent)
}

func TestCached_StoreFailuresFallBackToSolver(t *testing.T) {
	inner := newCounting(t)
	core, logs := observer.New(zap.WarnLevel)
	c := storage.NewCached(inner, failingStore{}, zap.New(core))

	res, err := c.Solve(context.Background(), duel.NewState(smallPlayer, smallBoss, duel.Normal))
	require.NoError(t, err)
	assert.Equal(t, 226, res.ManaSpent())
	assert.Equal(t, 2, logs.Len())
}

func TestCached_NoSolutionIsNotStored(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	c := storage.NewCached(newCounting(t), store, zaptest.NewLogger(t))

	_, err := c.Solve(ctx, duel.NewState(duel.Player{HP: 10, Mana: 52}, smallBoss, duel.Normal))
	assert.ErrorIs(t, err, solver.ErrNoSolution)
	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCached_MidDuelStatesBypassStore(t *testing.T) {
	ctx := context.Background()
	inner := newCounting(t)
	store := storage.NewMemory()
	c := storage.NewCached(inner, store, zaptest.NewLogger(t))

	st := duel.NewState(duel.Player{HP: 50, Mana: 500}, duel.Boss{HP: 20, Damage: 8}, duel.Normal)
	missile, ok := duel.SpellByKind(duel.MagicMissile)
	require.True(t, ok)
	_, _, err := st.Turn(missile)
	require.NoError(t, err)

	_, err = c.Solve(ctx, st)
	require.NoError(t, err)
	_, err = c.Solve(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNewCached_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { storage.NewCached(nil, storage.NewMemory(), zap.NewNop()) })
}
