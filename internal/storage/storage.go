// Package storage defines how solved duels are persisted and reused.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/spellduel/internal/game/duel"
)

// ErrSolutionNotFound is returned when no solution is stored for a key.
var ErrSolutionNotFound = errors.New("solution not found")

// Solution is the cheapest known winning sequence for one starting setup.
type Solution struct {
	ID          uuid.UUID
	ScenarioKey string
	Difficulty  duel.Difficulty
	Player      duel.Player
	Boss        duel.Boss
	ManaSpent   int
	// Spells holds display names in cast order.
	Spells    []string
	Expanded  int
	CreatedAt time.Time
}

// ScenarioKey returns the canonical key for a starting setup. Armor is not
// part of the key; duels always start without it.
func ScenarioKey(player duel.Player, boss duel.Boss, difficulty duel.Difficulty) string {
	return fmt.Sprintf("p%d-m%d-b%d-d%d-%s", player.HP, player.Mana, boss.HP, boss.Damage, difficulty)
}

// Store persists solutions keyed by ScenarioKey.
type Store interface {
	// Save inserts or replaces the solution for s.ScenarioKey. A zero ID is
	// assigned a fresh one; the stored row is returned.
	Save(ctx context.Context, s Solution) (Solution, error)
	// Get returns the solution for key, or ErrSolutionNotFound.
	Get(ctx context.Context, key string) (Solution, error)
	// List returns up to limit solutions, newest first.
	List(ctx context.Context, limit int) ([]Solution, error)
	Close() error
}

// Prepare fills in the derived fields of s before it is written.
//
// Postcondition: ID is non-zero, ScenarioKey matches the setup, Spells is
// non-nil, and CreatedAt is set in UTC.
func Prepare(s Solution, now time.Time) Solution {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.ScenarioKey = ScenarioKey(s.Player, s.Boss, s.Difficulty)
	if s.Spells == nil {
		s.Spells = []string{}
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return s
}
