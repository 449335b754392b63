package duel

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIllegalAction is returned when a spell is cast without enough mana or
// while its effect is still active.
var ErrIllegalAction = errors.New("illegal action")

// Difficulty selects the rule variant.
type Difficulty int

const (
	Normal Difficulty = iota
	// Hard costs the player 1 HP at the start of every player turn.
	Hard
)

// String returns "normal" or "hard".
func (d Difficulty) String() string {
	if d == Hard {
		return "hard"
	}
	return "normal"
}

// ParseDifficulty maps "normal" and "hard" to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal":
		return Normal, nil
	case "hard":
		return Hard, nil
	default:
		return Normal, fmt.Errorf("unknown difficulty %q", s)
	}
}

// Player holds the spell caster's stats. Armor is derived from the shield
// effect and is reset on every effect pass. HP may go negative.
type Player struct {
	HP    int
	Armor int
	Mana  int
}

// Boss holds the opponent's stats. HP may go negative.
type Boss struct {
	HP     int
	Damage int
}

// State is a complete snapshot of one duel.
//
// Invariant: a State is never shared between search branches; use Clone.
type State struct {
	Player     Player
	Boss       Boss
	Effects    EffectLedger
	History    []Spell
	ManaSpent  int
	Difficulty Difficulty
}

// NewState creates the initial state of a duel.
//
// Postcondition: no effects are active, History is empty and ManaSpent is 0.
func NewState(player Player, boss Boss, difficulty Difficulty) *State {
	return &State{
		Player:     player,
		Boss:       boss,
		Difficulty: difficulty,
	}
}

// Clone returns an independent deep copy of s.
//
// Postcondition: mutating the clone never affects s, and vice versa.
func (s *State) Clone() *State {
	c := *s
	c.Effects = s.Effects.clone()
	if s.History != nil {
		c.History = make([]Spell, len(s.History), len(s.History)+1)
		copy(c.History, s.History)
	}
	return &c
}

// Snapshot returns the combatant view of s.
func (s *State) Snapshot() Snapshot {
	return Snapshot{Player: s.Player, Boss: s.Boss, ManaSpent: s.ManaSpent}
}

// IsPlayerDead reports whether the player's HP is at or below zero.
func (s *State) IsPlayerDead() bool { return s.Player.HP <= 0 }

// IsBossDead reports whether the boss's HP is at or below zero.
func (s *State) IsBossDead() bool { return s.Boss.HP <= 0 }

// CanCast reports whether spell may be cast right now.
//
// Postcondition: Returns false if mana is below the cost, or if spell is timed
// and its effect is active.
func (s *State) CanCast(spell Spell) bool {
	return s.castError(spell) == nil
}

// Castable reports whether choosing spell for the next turn can avoid an
// illegal cast. It projects the coming effect pass (mana regeneration, effects
// expiring, boss killed before the cast) without mutating s.
//
// Postcondition: if Castable returns true, Turn(spell) on a clone of s never
// returns ErrIllegalAction.
func (s *State) Castable(spell Spell) bool {
	p := s.Player
	if s.Difficulty == Hard {
		p.HP--
		if p.HP <= 0 {
			return true
		}
	}
	p, b, survivors := s.Effects.preview(p, s.Boss)
	if b.HP <= 0 {
		return true
	}
	if spell.Cost() > p.Mana {
		return false
	}
	if spell.Duration() > 0 && survivors[spell.Kind()] {
		return false
	}
	return true
}

func (s *State) castError(spell Spell) error {
	if spell.Cost() > s.Player.Mana {
		return fmt.Errorf("%w: %s costs %d mana, player has %d", ErrIllegalAction, spell, spell.Cost(), s.Player.Mana)
	}
	if spell.Duration() > 0 && !s.Effects.CanActivate(spell.Kind()) {
		return fmt.Errorf("%w: %s is already active", ErrIllegalAction, spell)
	}
	return nil
}

// cast deducts the cost of spell and applies it.
//
// Postcondition: on error s is unchanged.
func (s *State) cast(spell Spell) ([]Step, error) {
	if err := s.castError(spell); err != nil {
		return nil, err
	}
	switch sp := spell.(type) {
	case InstantSpell:
		s.charge(sp)
		steps := []Step{s.castStep(sp)}
		return append(steps, sp.resolve(&s.Player, &s.Boss)...), nil
	case TimedSpell:
		if err := s.Effects.Activate(sp); err != nil {
			return nil, err
		}
		s.charge(sp)
		return []Step{
			s.castStep(sp),
			{Kind: StepEffectStarted, Spell: sp.Kind(), Timer: sp.Duration(), Player: s.Player, Boss: s.Boss},
		}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported spell %T", ErrIllegalAction, spell)
	}
}

func (s *State) charge(spell Spell) {
	s.Player.Mana -= spell.Cost()
	s.ManaSpent += spell.Cost()
}

func (s *State) castStep(spell Spell) Step {
	return Step{Kind: StepCast, Spell: spell.Kind(), Amount: spell.Cost(), Player: s.Player, Boss: s.Boss}
}
