package duel

// Outcome classifies the result of a half-turn or full turn.
type Outcome int

const (
	Ongoing Outcome = iota
	BossKilledByEffects
	BossKilledBySpell
	PlayerKilled
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case Ongoing:
		return "ongoing"
	case BossKilledByEffects:
		return "boss killed by effects"
	case BossKilledBySpell:
		return "boss killed by spell"
	case PlayerKilled:
		return "player killed"
	default:
		return "unknown"
	}
}

// IsWin reports whether the outcome is a player victory.
func (o Outcome) IsWin() bool {
	return o == BossKilledByEffects || o == BossKilledBySpell
}

// Terminal reports whether the duel is over.
func (o Outcome) Terminal() bool { return o != Ongoing }

// PlayerTurn resolves the player's half-turn casting spell:
//  1. Hard difficulty: the player loses 1 HP; at 0 or below the player is killed.
//  2. One effect pass; a boss at 0 HP or below is killed by effects.
//  3. The cast: mana is deducted, then instant damage/heal or effect registration.
//  4. A boss at 0 HP or below is killed by the spell.
//
// Precondition: spell must not be nil.
// Postcondition: Returns ErrIllegalAction (wrapped) when the cast is reached and
// is illegal; the hard-mode drain and effect pass have been applied in that case.
func (s *State) PlayerTurn(spell Spell) (Outcome, []Step, error) {
	var steps []Step
	if s.Difficulty == Hard {
		s.Player.HP--
		steps = append(steps, s.stamp(PhasePlayer, Step{Kind: StepHardModeDrain, Amount: 1, Player: s.Player, Boss: s.Boss}))
		if s.IsPlayerDead() {
			return PlayerKilled, steps, nil
		}
	}

	for _, st := range s.Effects.ApplyAndTick(&s.Player, &s.Boss) {
		steps = append(steps, s.stamp(PhasePlayer, st))
	}
	if s.IsBossDead() {
		return BossKilledByEffects, steps, nil
	}

	castSteps, err := s.cast(spell)
	if err != nil {
		return Ongoing, steps, err
	}
	for _, st := range castSteps {
		steps = append(steps, s.stamp(PhasePlayer, st))
	}
	if s.IsBossDead() {
		return BossKilledBySpell, steps, nil
	}
	return Ongoing, steps, nil
}

// BossTurn resolves the boss's half-turn: one effect pass, then an attack for
// max(1, damage - armor).
//
// Postcondition: Returns BossKilledByEffects, PlayerKilled or Ongoing.
func (s *State) BossTurn() (Outcome, []Step) {
	var steps []Step
	for _, st := range s.Effects.ApplyAndTick(&s.Player, &s.Boss) {
		steps = append(steps, s.stamp(PhaseBoss, st))
	}
	if s.IsBossDead() {
		return BossKilledByEffects, steps
	}

	dmg := max(1, s.Boss.Damage-s.Player.Armor)
	s.Player.HP -= dmg
	steps = append(steps, s.stamp(PhaseBoss, Step{
		Kind:       StepBossAttack,
		Amount:     dmg,
		BossDamage: s.Boss.Damage,
		Armor:      s.Player.Armor,
		Player:     s.Player,
		Boss:       s.Boss,
	}))
	if s.IsPlayerDead() {
		return PlayerKilled, steps
	}
	return Ongoing, steps
}

// Turn records spell in History and resolves a full turn: the player's
// half-turn, then the boss's half-turn unless the player's already ended the
// duel.
//
// Postcondition: the returned steps are the concatenated trace of both
// half-turns, in resolution order.
func (s *State) Turn(spell Spell) (Outcome, []Step, error) {
	s.History = append(s.History, spell)
	out, steps, err := s.PlayerTurn(spell)
	if err != nil || out.Terminal() {
		return out, steps, err
	}
	out, bossSteps := s.BossTurn()
	return out, append(steps, bossSteps...), nil
}

func (s *State) stamp(phase Phase, st Step) Step {
	st.Phase = phase
	st.ManaSpent = s.ManaSpent
	return st
}
