// Package replay re-runs a spell sequence through the duel resolver and
// renders the resulting trace as a turn-by-turn log.
package replay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/spellduel/internal/game/duel"
)

// ErrDuelOver is returned when a sequence has spells left after the duel ended.
var ErrDuelOver = errors.New("spell sequence continues after the duel ended")

// Block is one half-turn of a replay.
type Block struct {
	// Turn is the 1-based full-turn number.
	Turn  int
	Phase duel.Phase
	// Spell is the spell chosen for the turn; it is set on both half-turns.
	Spell duel.Spell
	// Start is the combatant view before the half-turn began.
	Start duel.Snapshot
	// Armor is the player's armor once the half-turn's effect pass has run.
	Armor      int
	Difficulty duel.Difficulty
	Steps      []duel.Step
	// Outcome is Ongoing unless the duel ended during this half-turn.
	Outcome duel.Outcome
}

// Title returns "Player turn" or "Boss turn".
func (b Block) Title() string {
	if b.Phase == duel.PhaseBoss {
		return "Boss turn"
	}
	return "Player turn"
}

// Log is a complete replay.
type Log struct {
	Difficulty duel.Difficulty
	Blocks     []Block
	// Outcome is the final outcome; Ongoing when the sequence ran out first.
	Outcome   duel.Outcome
	ManaSpent int
	Final     duel.Snapshot
}

// Build replays history from a fresh duel and records every half-turn.
//
// Precondition: every element of history must be non-nil.
// Postcondition: Returns a Log whose Outcome and ManaSpent equal those of
// running history through duel.State.Turn; returns an error wrapping
// duel.ErrIllegalAction when a cast is illegal, or ErrDuelOver when spells
// remain after the duel ended.
func Build(history []duel.Spell, player duel.Player, boss duel.Boss, difficulty duel.Difficulty) (*Log, error) {
	st := duel.NewState(player, boss, difficulty)
	log := &Log{Difficulty: difficulty}

	for i, sp := range history {
		if log.Outcome.Terminal() {
			return nil, fmt.Errorf("replaying turn %d (%s): %w", i+1, sp, ErrDuelOver)
		}
		start := st.Snapshot()
		armor := st.Effects.ArmorAfterPass()
		out, steps, err := st.Turn(sp)
		if err != nil {
			return nil, fmt.Errorf("replaying turn %d (%s): %w", i+1, sp, err)
		}

		var playerSteps, bossSteps []duel.Step
		for _, s := range steps {
			if s.Phase == duel.PhaseBoss {
				bossSteps = append(bossSteps, s)
			} else {
				playerSteps = append(playerSteps, s)
			}
		}

		pb := Block{Turn: i + 1, Phase: duel.PhasePlayer, Spell: sp, Start: start, Armor: armor, Difficulty: difficulty, Steps: playerSteps}
		if len(bossSteps) == 0 {
			pb.Outcome = out
			log.Blocks = append(log.Blocks, pb)
		} else {
			bossStart := start
			if n := len(playerSteps); n > 0 {
				bossStart = playerSteps[n-1].After()
			}
			log.Blocks = append(log.Blocks, pb, Block{
				Turn:       i + 1,
				Phase:      duel.PhaseBoss,
				Spell:      sp,
				Start:      bossStart,
				Armor:      passArmor(bossSteps),
				Difficulty: difficulty,
				Steps:      bossSteps,
				Outcome:    out,
			})
		}
		log.Outcome = out
	}

	log.ManaSpent = st.ManaSpent
	log.Final = st.Snapshot()
	return log, nil
}

// passArmor returns the armor left by the effect pass in steps; a pass with
// no active effects leaves zero.
func passArmor(steps []duel.Step) int {
	armor := 0
	for _, s := range steps {
		if s.Kind == duel.StepEffectTick {
			armor = s.Player.Armor
		}
	}
	return armor
}

// Lines renders the block as log lines, without the leading blank line.
func (b Block) Lines() []string {
	lines := []string{
		fmt.Sprintf("-- %s --", b.Title()),
		fmt.Sprintf("- Player has %d hit points, %d armor, %d mana (%d mana spent)",
			b.Start.Player.HP, b.Armor, b.Start.Player.Mana, b.Start.ManaSpent),
		fmt.Sprintf("- Boss has %d hit points", b.Start.Boss.HP),
	}
	var spent int
	for _, s := range b.Steps {
		lines = append(lines, stepLines(s)...)
		spent = s.ManaSpent
	}
	switch {
	case b.Outcome.IsWin():
		lines = append(lines, fmt.Sprintf("This kills the boss, and the player wins! Total mana spent: %d", spent))
	case b.Outcome == duel.PlayerKilled:
		lines = append(lines, "This kills the player, and the boss wins.")
	}
	return lines
}

func stepLines(s duel.Step) []string {
	switch s.Kind {
	case duel.StepHardModeDrain:
		return []string{fmt.Sprintf("Player loses %d hp.", s.Amount)}
	case duel.StepEffectTick:
		var line string
		switch s.Spell {
		case duel.Shield:
			line = fmt.Sprintf("Shield's timer is now %d.", s.Timer)
		case duel.Poison:
			line = fmt.Sprintf("Poison deals %d damage (Boss hp: %d); its timer is now %d.", s.Amount, s.Boss.HP, s.Timer)
		case duel.Recharge:
			line = fmt.Sprintf("Recharge provides %d mana (%d total); its timer is now %d.", s.Amount, s.Player.Mana, s.Timer)
		default:
			line = fmt.Sprintf("%s's timer is now %d.", s.Spell, s.Timer)
		}
		if s.Expired {
			return []string{line, fmt.Sprintf("%s wears off.", s.Spell)}
		}
		return []string{line}
	case duel.StepCast:
		return []string{fmt.Sprintf("Player casts %s (costs %d mana).", s.Spell, s.Amount)}
	case duel.StepSpellDamage:
		return []string{fmt.Sprintf("%s deals %d damage (Boss hp: %d).", s.Spell, s.Amount, s.Boss.HP)}
	case duel.StepSpellHeal:
		return []string{fmt.Sprintf("%s heals for %d (Player hp: %d).", s.Spell, s.Amount, s.Player.HP)}
	case duel.StepEffectStarted:
		return []string{fmt.Sprintf("%s takes effect for %d turns.", s.Spell, s.Timer)}
	case duel.StepBossAttack:
		return []string{fmt.Sprintf("Boss attacks for %d damage! (%d - %d armor; Player hp: %d)",
			s.Amount, s.BossDamage, s.Armor, s.Player.HP)}
	default:
		return nil
	}
}

// String renders the whole log: one block per half-turn, each preceded by a
// blank line.
func (l *Log) String() string {
	var b strings.Builder
	for _, blk := range l.Blocks {
		b.WriteString("\n")
		for _, line := range blk.Lines() {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}
