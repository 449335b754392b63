package duel

import "fmt"

// ActiveEffect tracks one timed spell currently affecting the duel.
type ActiveEffect struct {
	Source         TimedSpell
	TurnsRemaining int
}

// Kind returns the identity of the spell that created the effect.
func (e ActiveEffect) Kind() SpellKind { return e.Source.Kind() }

// EffectLedger holds the active effects in registration order.
// At most one effect per SpellKind is active at any time.
// It is not safe for concurrent use; every duel State owns its own ledger.
type EffectLedger struct {
	effects []ActiveEffect
}

// CanActivate reports whether an effect of kind may be registered.
//
// Postcondition: Returns false iff an effect of kind is active, regardless of its timer.
func (l *EffectLedger) CanActivate(kind SpellKind) bool {
	for _, e := range l.effects {
		if e.Kind() == kind {
			return false
		}
	}
	return true
}

// Activate registers a new effect for spell with its full duration.
//
// Precondition: spell.Duration() > 0.
// Postcondition: Returns ErrIllegalAction if an effect of the same kind is active;
// otherwise the effect is appended to the ledger.
func (l *EffectLedger) Activate(spell TimedSpell) error {
	if !l.CanActivate(spell.Kind()) {
		return fmt.Errorf("%w: %s is already active", ErrIllegalAction, spell)
	}
	l.effects = append(l.effects, ActiveEffect{Source: spell, TurnsRemaining: spell.Duration()})
	return nil
}

// ApplyAndTick runs one effect pass: armor is reset to zero, every effect
// applies its impact in ledger order and loses one turn, and effects whose
// timer reached zero are removed.
//
// Precondition: p and b must not be nil.
// Postcondition: Returns one StepEffectTick per effect that was active at the
// start of the pass, in ledger order; p.Armor is the shield bonus iff a shield
// effect was applied during the pass, zero otherwise.
func (l *EffectLedger) ApplyAndTick(p *Player, b *Boss) []Step {
	p.Armor = 0
	if len(l.effects) == 0 {
		return nil
	}
	steps := make([]Step, 0, len(l.effects))
	kept := l.effects[:0]
	for _, e := range l.effects {
		st := e.Source.tick(p, b)
		e.TurnsRemaining--
		st.Timer = e.TurnsRemaining
		st.Expired = e.TurnsRemaining <= 0
		steps = append(steps, st)
		if !st.Expired {
			kept = append(kept, e)
		}
	}
	// Zero the tail so removed effects do not linger in the backing array.
	for i := len(kept); i < len(l.effects); i++ {
		l.effects[i] = ActiveEffect{}
	}
	l.effects = kept
	return steps
}

// Remaining returns the timer of the active effect of kind.
func (l *EffectLedger) Remaining(kind SpellKind) (int, bool) {
	for _, e := range l.effects {
		if e.Kind() == kind {
			return e.TurnsRemaining, true
		}
	}
	return 0, false
}

// Active returns a copy of the active effects in ledger order.
func (l *EffectLedger) Active() []ActiveEffect {
	out := make([]ActiveEffect, len(l.effects))
	copy(out, l.effects)
	return out
}

// ArmorAfterPass returns the armor the player would hold once the next
// effect pass has run, without running it.
func (l *EffectLedger) ArmorAfterPass() int {
	p, _, _ := l.preview(Player{}, Boss{})
	return p.Armor
}

// Len returns the number of active effects.
func (l *EffectLedger) Len() int { return len(l.effects) }

// preview computes what the next effect pass would do to p and b without
// mutating the ledger, and reports which kinds would still be active after it.
func (l *EffectLedger) preview(p Player, b Boss) (Player, Boss, map[SpellKind]bool) {
	p.Armor = 0
	survivors := make(map[SpellKind]bool, len(l.effects))
	for _, e := range l.effects {
		e.Source.tick(&p, &b)
		if e.TurnsRemaining > 1 {
			survivors[e.Kind()] = true
		}
	}
	return p, b, survivors
}

func (l *EffectLedger) clone() EffectLedger {
	if l.effects == nil {
		return EffectLedger{}
	}
	out := make([]ActiveEffect, len(l.effects))
	copy(out, l.effects)
	return EffectLedger{effects: out}
}
