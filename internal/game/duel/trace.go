package duel

// StepKind classifies one entry of a resolver trace.
type StepKind int

const (
	StepUnknown       StepKind = iota
	StepHardModeDrain          // player loses 1 HP at the start of a hard-mode turn
	StepEffectTick             // an active effect applied its per-pass impact
	StepCast                   // mana deducted for a cast
	StepSpellDamage            // instant damage dealt to the boss
	StepSpellHeal              // instant heal applied to the player
	StepEffectStarted          // a timed spell registered its effect
	StepBossAttack             // the boss hit the player
)

// String returns a short label for the step kind.
func (k StepKind) String() string {
	switch k {
	case StepHardModeDrain:
		return "hard_mode_drain"
	case StepEffectTick:
		return "effect_tick"
	case StepCast:
		return "cast"
	case StepSpellDamage:
		return "spell_damage"
	case StepSpellHeal:
		return "spell_heal"
	case StepEffectStarted:
		return "effect_started"
	case StepBossAttack:
		return "boss_attack"
	default:
		return "unknown"
	}
}

// Phase is the half-turn a step belongs to.
type Phase int

const (
	PhasePlayer Phase = iota
	PhaseBoss
)

// Step is one resolver event with the combatant values immediately after it.
type Step struct {
	Kind  StepKind
	Phase Phase
	// Spell is the originating spell for cast, spell and effect steps.
	Spell SpellKind
	// Amount is the magnitude of the change: damage, heal, mana, armor or cost.
	Amount int
	// Timer is the effect's remaining turns after a tick or at registration.
	Timer int
	// Expired is set on the tick that removed the effect from the ledger.
	Expired bool
	// BossDamage and Armor are the inputs of a boss attack.
	BossDamage int
	Armor      int

	Player    Player
	Boss      Boss
	ManaSpent int
}

// Snapshot is the combatant view used for turn headers.
type Snapshot struct {
	Player    Player
	Boss      Boss
	ManaSpent int
}

// After returns the snapshot recorded on the step.
func (s Step) After() Snapshot {
	return Snapshot{Player: s.Player, Boss: s.Boss, ManaSpent: s.ManaSpent}
}
