package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/spellduel/internal/game/duel"
	"github.com/cory-johannsen/spellduel/internal/storage"
	"github.com/cory-johannsen/spellduel/internal/storage/postgres"
	"github.com/cory-johannsen/spellduel/internal/testutil"
)

func setupRepo(t *testing.T) *postgres.SolutionRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("container-backed test skipped in short mode")
	}
	return postgres.NewSolutionRepository(testutil.NewPool(t))
}

func TestSolutionRepository_SaveAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, storage.Solution{
		Difficulty: duel.Hard,
		Player:     duel.Player{HP: 50, Mana: 500},
		Boss:       duel.Boss{HP: 58, Damage: 9},
		ManaSpent:  1309,
		Spells:     []string{"Poison", "Recharge", "Shield"},
		Expanded:   4242,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.Equal(t, "p50-m500-b58-d9-hard", saved.ScenarioKey)

	got, err := repo.Get(ctx, saved.ScenarioKey)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, duel.Hard, got.Difficulty)
	assert.Equal(t, 1309, got.ManaSpent)
	assert.Equal(t, []string{"Poison", "Recharge", "Shield"}, got.Spells)
	assert.Equal(t, 4242, got.Expanded)
	assert.WithinDuration(t, saved.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestSolutionRepository_GetMissing(t *testing.T) {
	repo := setupRepo(t)
	_, err := repo.Get(context.Background(), "p1-m1-b1-d1-normal")
	assert.ErrorIs(t, err, storage.ErrSolutionNotFound)
}

func TestSolutionRepository_UpsertKeepsID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := storage.Solution{
		Player: duel.Player{HP: 10, Mana: 250},
		Boss:   duel.Boss{HP: 13, Damage: 8},
	}

	first := base
	first.ManaSpent, first.Spells = 300, []string{"Drain"}
	a, err := repo.Save(ctx, first)
	require.NoError(t, err)

	second := base
	second.ManaSpent, second.Spells = 226, []string{"Poison", "Magic Missile"}
	b, err := repo.Save(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, 226, b.ManaSpent)
}

func TestSolutionRepository_ListNewestFirst(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, err := repo.Save(ctx, storage.Solution{
			Player:    duel.Player{HP: 10, Mana: 250},
			Boss:      duel.Boss{HP: 10 + i, Damage: 8},
			CreatedAt: time.Unix(int64(i*100), 0),
		})
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 13, all[0].Boss.HP)
	assert.Equal(t, 11, all[2].Boss.HP)

	two, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestProperty_SolutionRepository_RoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	names := duel.SpellNames(duel.Catalog())
	rapid.Check(t, func(rt *rapid.T) {
		s := storage.Solution{
			Player:    duel.Player{HP: rapid.IntRange(1, 100).Draw(rt, "php"), Mana: rapid.IntRange(0, 1000).Draw(rt, "mana")},
			Boss:      duel.Boss{HP: rapid.IntRange(1, 100).Draw(rt, "bhp"), Damage: rapid.IntRange(0, 20).Draw(rt, "dmg")},
			ManaSpent: rapid.IntRange(0, 5000).Draw(rt, "spent"),
			Spells:    rapid.SliceOfN(rapid.SampledFrom(names), 0, 12).Draw(rt, "spells"),
		}
		saved, err := repo.Save(ctx, s)
		if err != nil {
			rt.Fatalf("Save: %v", err)
		}
		got, err := repo.Get(ctx, saved.ScenarioKey)
		if err != nil {
			rt.Fatalf("Get: %v", err)
		}
		if got.ManaSpent != s.ManaSpent || len(got.Spells) != len(s.Spells) {
			rt.Fatalf("round trip mismatch: saved %+v, got %+v", saved, got)
		}
	})
}
