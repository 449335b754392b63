// Package duel implements the fixed spell duel rule set: the spell catalog,
// the effect ledger, the duel state, and the turn resolver.
package duel

import (
	"fmt"
	"strings"
)

// SpellKind identifies one of the five spells.
// The zero value (SpellUnknown) is intentionally invalid.
type SpellKind int

const (
	SpellUnknown SpellKind = iota // zero value; intentionally invalid
	MagicMissile
	Drain
	Shield
	Poison
	Recharge
)

// String returns the display name used in duel logs.
func (k SpellKind) String() string {
	switch k {
	case MagicMissile:
		return "Magic Missile"
	case Drain:
		return "Drain"
	case Shield:
		return "Shield"
	case Poison:
		return "Poison"
	case Recharge:
		return "Recharge"
	default:
		return "Unknown"
	}
}

// Spell is one entry of the catalog. The set of implementations is closed:
// InstantDamage, InstantHealDamage, TimedShield, TimedDamageOverTime and
// TimedRegeneration.
type Spell interface {
	Kind() SpellKind
	// Cost is the mana deducted when the spell is cast.
	Cost() int
	// Duration is 0 for instant spells and the effect length in turns otherwise.
	Duration() int
	String() string
	sealed()
}

// InstantSpell resolves completely at cast time.
type InstantSpell interface {
	Spell
	resolve(p *Player, b *Boss) []Step
}

// TimedSpell registers an effect in the ledger and acts once per effect pass.
type TimedSpell interface {
	Spell
	tick(p *Player, b *Boss) Step
}

// InstantDamage deals Damage to the boss when cast.
type InstantDamage struct {
	ID       SpellKind
	ManaCost int
	Damage   int
}

func (s InstantDamage) Kind() SpellKind { return s.ID }
func (s InstantDamage) Cost() int       { return s.ManaCost }
func (s InstantDamage) Duration() int   { return 0 }
func (s InstantDamage) String() string  { return s.ID.String() }
func (InstantDamage) sealed()           {}

func (s InstantDamage) resolve(p *Player, b *Boss) []Step {
	b.HP -= s.Damage
	return []Step{{Kind: StepSpellDamage, Spell: s.ID, Amount: s.Damage, Player: *p, Boss: *b}}
}

// InstantHealDamage deals Damage to the boss and heals the player by Heal.
type InstantHealDamage struct {
	ID       SpellKind
	ManaCost int
	Damage   int
	Heal     int
}

func (s InstantHealDamage) Kind() SpellKind { return s.ID }
func (s InstantHealDamage) Cost() int       { return s.ManaCost }
func (s InstantHealDamage) Duration() int   { return 0 }
func (s InstantHealDamage) String() string  { return s.ID.String() }
func (InstantHealDamage) sealed()           {}

func (s InstantHealDamage) resolve(p *Player, b *Boss) []Step {
	b.HP -= s.Damage
	dmg := Step{Kind: StepSpellDamage, Spell: s.ID, Amount: s.Damage, Player: *p, Boss: *b}
	p.HP += s.Heal
	heal := Step{Kind: StepSpellHeal, Spell: s.ID, Amount: s.Heal, Player: *p, Boss: *b}
	return []Step{dmg, heal}
}

// TimedShield sets the player's armor to Armor on every effect pass while active.
type TimedShield struct {
	ID       SpellKind
	ManaCost int
	Turns    int
	Armor    int
}

func (s TimedShield) Kind() SpellKind { return s.ID }
func (s TimedShield) Cost() int       { return s.ManaCost }
func (s TimedShield) Duration() int   { return s.Turns }
func (s TimedShield) String() string  { return s.ID.String() }
func (TimedShield) sealed()           {}

func (s TimedShield) tick(p *Player, b *Boss) Step {
	p.Armor = s.Armor
	return Step{Kind: StepEffectTick, Spell: s.ID, Amount: s.Armor, Player: *p, Boss: *b}
}

// TimedDamageOverTime deals Damage to the boss on every effect pass while active.
type TimedDamageOverTime struct {
	ID       SpellKind
	ManaCost int
	Turns    int
	Damage   int
}

func (s TimedDamageOverTime) Kind() SpellKind { return s.ID }
func (s TimedDamageOverTime) Cost() int       { return s.ManaCost }
func (s TimedDamageOverTime) Duration() int   { return s.Turns }
func (s TimedDamageOverTime) String() string  { return s.ID.String() }
func (TimedDamageOverTime) sealed()           {}

func (s TimedDamageOverTime) tick(p *Player, b *Boss) Step {
	b.HP -= s.Damage
	return Step{Kind: StepEffectTick, Spell: s.ID, Amount: s.Damage, Player: *p, Boss: *b}
}

// TimedRegeneration restores Mana to the player on every effect pass while active.
type TimedRegeneration struct {
	ID       SpellKind
	ManaCost int
	Turns    int
	Mana     int
}

func (s TimedRegeneration) Kind() SpellKind { return s.ID }
func (s TimedRegeneration) Cost() int       { return s.ManaCost }
func (s TimedRegeneration) Duration() int   { return s.Turns }
func (s TimedRegeneration) String() string  { return s.ID.String() }
func (TimedRegeneration) sealed()           {}

func (s TimedRegeneration) tick(p *Player, b *Boss) Step {
	p.Mana += s.Mana
	return Step{Kind: StepEffectTick, Spell: s.ID, Amount: s.Mana, Player: *p, Boss: *b}
}

// Per-pass effect magnitudes of the timed spells.
const (
	ShieldArmor  = 7
	PoisonDamage = 3
	RechargeMana = 101
)

var catalog = [...]Spell{
	InstantDamage{ID: MagicMissile, ManaCost: 53, Damage: 4},
	InstantHealDamage{ID: Drain, ManaCost: 73, Damage: 2, Heal: 2},
	TimedShield{ID: Shield, ManaCost: 113, Turns: 6, Armor: ShieldArmor},
	TimedDamageOverTime{ID: Poison, ManaCost: 173, Turns: 6, Damage: PoisonDamage},
	TimedRegeneration{ID: Recharge, ManaCost: 229, Turns: 5, Mana: RechargeMana},
}

// Catalog returns the five spells in cost order.
//
// Postcondition: len(result) == 5; the slice is a fresh copy on every call.
func Catalog() []Spell {
	out := make([]Spell, len(catalog))
	copy(out, catalog[:])
	return out
}

// SpellByKind returns the catalog entry for kind.
//
// Postcondition: Returns (nil, false) for SpellUnknown or unrecognized kinds.
func SpellByKind(kind SpellKind) (Spell, bool) {
	for _, s := range catalog {
		if s.Kind() == kind {
			return s, true
		}
	}
	return nil, false
}

// ParseSpell resolves a spell by display name, case-insensitively. Spaces,
// dashes and underscores are ignored, so "magic_missile" and "MagicMissile"
// both resolve to Magic Missile.
func ParseSpell(name string) (Spell, error) {
	want := normalizeSpellName(name)
	for _, s := range catalog {
		if normalizeSpellName(s.String()) == want {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown spell %q", name)
}

// ParseSpells resolves every name in names, in order.
func ParseSpells(names []string) ([]Spell, error) {
	out := make([]Spell, 0, len(names))
	for _, n := range names {
		s, err := ParseSpell(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// SpellNames returns the display names of spells, in order.
func SpellNames(spells []Spell) []string {
	out := make([]string, len(spells))
	for i, s := range spells {
		out[i] = s.String()
	}
	return out
}

func normalizeSpellName(name string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(name)))
}
