// Package solver finds the cheapest spell sequence that wins a duel using a
// uniform-cost search over duel states ordered by mana spent.
package solver

import (
	"container/heap"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/spellduel/internal/game/duel"
)

// DefaultMaxNodes bounds the number of expanded states when Options.MaxNodes is zero.
const DefaultMaxNodes = 1_000_000

// cancelCheckInterval is how many expansions run between context checks.
const cancelCheckInterval = 1024

var (
	// ErrNoSolution is returned when the frontier empties without a win.
	ErrNoSolution = errors.New("no winning spell sequence")
	// ErrSearchBudgetExhausted is returned when MaxNodes states were expanded without a win.
	ErrSearchBudgetExhausted = errors.New("search budget exhausted")
)

// Options tunes a Solver.
type Options struct {
	// MaxNodes is the maximum number of frontier states expanded; 0 uses DefaultMaxNodes.
	MaxNodes int
}

// Result is a winning state plus search statistics. On ErrNoSolution and
// ErrSearchBudgetExhausted only the statistics are set.
type Result struct {
	State        *duel.State
	Outcome      duel.Outcome
	Expanded     int
	Discarded    int
	FrontierLeft int
}

// ManaSpent returns the mana cost of the winning sequence, or 0 without a win.
func (r Result) ManaSpent() int {
	if r.State == nil {
		return 0
	}
	return r.State.ManaSpent
}

// Spells returns the winning spell sequence, or nil without a win.
func (r Result) Spells() []duel.Spell {
	if r.State == nil {
		return nil
	}
	out := make([]duel.Spell, len(r.State.History))
	copy(out, r.State.History)
	return out
}

// Solver runs minimum-mana searches. A Solver holds no per-search state and
// may be shared between goroutines.
type Solver struct {
	maxNodes int
	catalog  []duel.Spell
	logger   *zap.Logger
}

// New constructs a Solver.
//
// Precondition: logger must not be nil; opts.MaxNodes >= 0.
func New(opts Options, logger *zap.Logger) *Solver {
	if logger == nil {
		panic("solver.New: logger must not be nil")
	}
	maxNodes := opts.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	return &Solver{maxNodes: maxNodes, catalog: duel.Catalog(), logger: logger}
}

// Solve searches for the cheapest winning spell sequence from initial.
//
// States are popped in ascending ManaSpent order (ties in insertion order).
// Each popped state is expanded by every castable spell; branches where the
// player dies are discarded and winning branches are queued like any other.
// The first winning state popped is returned: every state still queued costs
// at least as much, and casting never reduces ManaSpent, so it is optimal.
// A win is not returned when it is generated, since a cheaper win may still
// be produced from a state queued ahead of it. Among wins of equal cost the
// one returned follows insertion order; any of them is a valid answer.
//
// Precondition: initial must not be nil; it is not modified.
// Postcondition: Returns a Result with a winning State, or ErrNoSolution,
// ErrSearchBudgetExhausted, or ctx.Err() together with search statistics.
func (s *Solver) Solve(ctx context.Context, initial *duel.State) (Result, error) {
	if initial == nil {
		return Result{}, fmt.Errorf("solver.Solve: initial state must not be nil")
	}

	f := &frontier{}
	f.push(initial.Clone(), duel.Ongoing)
	var res Result

	for f.Len() > 0 {
		current, outcome := f.pop()
		if outcome.IsWin() {
			res.State = current
			res.Outcome = outcome
			res.FrontierLeft = f.Len()
			s.logFinish(initial, res, nil)
			return res, nil
		}

		if res.Expanded >= s.maxNodes {
			res.FrontierLeft = f.Len() + 1
			s.logFinish(initial, res, ErrSearchBudgetExhausted)
			return res, fmt.Errorf("%w after %d states", ErrSearchBudgetExhausted, res.Expanded)
		}
		if res.Expanded%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				res.FrontierLeft = f.Len() + 1
				return res, err
			}
		}
		res.Expanded++

		for _, sp := range s.catalog {
			if !current.Castable(sp) {
				res.Discarded++
				continue
			}
			next := current.Clone()
			out, _, err := next.Turn(sp)
			switch {
			case err != nil:
				res.Discarded++
				s.logger.Warn("castable spell failed during expansion",
					zap.String("spell", sp.String()),
					zap.Error(err),
				)
			case out == duel.PlayerKilled:
				res.Discarded++
			default:
				f.push(next, out)
			}
		}
	}

	s.logFinish(initial, res, ErrNoSolution)
	return res, ErrNoSolution
}

func (s *Solver) logFinish(initial *duel.State, res Result, err error) {
	fields := []zap.Field{
		zap.String("difficulty", initial.Difficulty.String()),
		zap.Int("boss_hp", initial.Boss.HP),
		zap.Int("boss_damage", initial.Boss.Damage),
		zap.Int("expanded", res.Expanded),
		zap.Int("discarded", res.Discarded),
		zap.Int("frontier_left", res.FrontierLeft),
	}
	if err != nil {
		s.logger.Debug("search finished without a win", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Debug("search found a win",
		append(fields,
			zap.Int("mana_spent", res.ManaSpent()),
			zap.Strings("spells", duel.SpellNames(res.State.History)),
		)...,
	)
}

// frontier is a min-heap of states keyed by (ManaSpent, insertion order).
type frontier struct {
	items []frontierItem
	seq   uint64
}

type frontierItem struct {
	state   *duel.State
	outcome duel.Outcome
	seq     uint64
}

func (f *frontier) Len() int { return len(f.items) }

func (f *frontier) Less(i, j int) bool {
	a, b := f.items[i], f.items[j]
	if a.state.ManaSpent != b.state.ManaSpent {
		return a.state.ManaSpent < b.state.ManaSpent
	}
	return a.seq < b.seq
}

func (f *frontier) Swap(i, j int) { f.items[i], f.items[j] = f.items[j], f.items[i] }

func (f *frontier) Push(x any) { f.items = append(f.items, x.(frontierItem)) }

func (f *frontier) Pop() any {
	n := len(f.items)
	it := f.items[n-1]
	f.items[n-1] = frontierItem{}
	f.items = f.items[:n-1]
	return it
}

func (f *frontier) push(st *duel.State, out duel.Outcome) {
	heap.Push(f, frontierItem{state: st, outcome: out, seq: f.seq})
	f.seq++
}

func (f *frontier) pop() (*duel.State, duel.Outcome) {
	it := heap.Pop(f).(frontierItem)
	return it.state, it.outcome
}
