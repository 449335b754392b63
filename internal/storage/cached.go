package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/spellduel/internal/game/duel"
	"github.com/cory-johannsen/spellduel/internal/game/solver"
)

// Solver is the search a Cached store fronts.
type Solver interface {
	Solve(ctx context.Context, initial *duel.State) (solver.Result, error)
}

// Cached answers repeated setups from a Store and falls back to a Solver.
type Cached struct {
	solver Solver
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewCached creates a Cached solver.
//
// Precondition: s, store and logger must be non-nil.
func NewCached(s Solver, store Store, logger *zap.Logger) *Cached {
	if s == nil || store == nil || logger == nil {
		panic("storage.NewCached: solver, store and logger must not be nil")
	}
	return &Cached{solver: s, store: store, logger: logger, now: time.Now}
}

// Solve returns a stored solution for initial when one exists and still
// replays to a win at the recorded cost; otherwise it runs the search and
// stores the result.
//
// Only fresh duels (no history, no effects, nothing spent) are looked up or
// saved; anything else goes straight to the solver.
//
// Postcondition: A cache hit returns a Result with Expanded == 0.
func (c *Cached) Solve(ctx context.Context, initial *duel.State) (solver.Result, error) {
	if initial == nil || !isFresh(initial) {
		return c.solver.Solve(ctx, initial)
	}
	key := ScenarioKey(initial.Player, initial.Boss, initial.Difficulty)

	stored, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		res, verr := revalidate(initial, stored)
		if verr == nil {
			c.logger.Debug("solution served from store",
				zap.String("scenario_key", key),
				zap.Int("mana_spent", stored.ManaSpent),
			)
			return res, nil
		}
		c.logger.Warn("stored solution failed revalidation; solving again",
			zap.String("scenario_key", key),
			zap.Error(verr),
		)
	case errors.Is(err, ErrSolutionNotFound):
	default:
		c.logger.Warn("solution lookup failed; solving without store",
			zap.String("scenario_key", key),
			zap.Error(err),
		)
	}

	res, err := c.solver.Solve(ctx, initial)
	if err != nil {
		return res, err
	}

	sol := Solution{
		Difficulty: initial.Difficulty,
		Player:     initial.Player,
		Boss:       initial.Boss,
		ManaSpent:  res.ManaSpent(),
		Spells:     duel.SpellNames(res.Spells()),
		Expanded:   res.Expanded,
		CreatedAt:  c.now(),
	}
	if _, err := c.store.Save(ctx, sol); err != nil {
		c.logger.Warn("saving solution failed",
			zap.String("scenario_key", key),
			zap.Error(err),
		)
	}
	return res, nil
}

func isFresh(s *duel.State) bool {
	return len(s.History) == 0 && s.Effects.Len() == 0 && s.ManaSpent == 0 && s.Player.Armor == 0
}

// revalidate replays stored through the resolver from initial.
func revalidate(initial *duel.State, stored Solution) (solver.Result, error) {
	spells, err := duel.ParseSpells(stored.Spells)
	if err != nil {
		return solver.Result{}, err
	}
	st := initial.Clone()
	out := duel.Ongoing
	for i, sp := range spells {
		if out.Terminal() {
			return solver.Result{}, fmt.Errorf("duel ended before spell %d", i+1)
		}
		if out, _, err = st.Turn(sp); err != nil {
			return solver.Result{}, err
		}
	}
	if !out.IsWin() {
		return solver.Result{}, fmt.Errorf("stored sequence ends with %s", out)
	}
	if st.ManaSpent != stored.ManaSpent {
		return solver.Result{}, fmt.Errorf("stored sequence costs %d, recorded %d", st.ManaSpent, stored.ManaSpent)
	}
	return solver.Result{State: st, Outcome: out}, nil
}
