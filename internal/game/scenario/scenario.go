// Package scenario loads duel setups from YAML files, sandboxed Lua scripts,
// and the plain "Hit Points / Damage" boss description.
package scenario

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/spellduel/internal/game/duel"
	"github.com/cory-johannsen/spellduel/internal/scripting"
)

// DifficultyBoth selects a solve under both rule variants.
const DifficultyBoth = "both"

// Player is the caster's starting stats.
type Player struct {
	HP   int `yaml:"hp"`
	Mana int `yaml:"mana"`
}

// Boss is the opponent's starting stats.
type Boss struct {
	HP     int `yaml:"hp"`
	Damage int `yaml:"damage"`
}

// Scenario is a named duel setup.
type Scenario struct {
	Name       string `yaml:"name"`
	Player     Player `yaml:"player"`
	Boss       Boss   `yaml:"boss"`
	Difficulty string `yaml:"difficulty"` // "normal" | "hard" | "both"; empty means both
}

// Default returns the stock duel: a 50 HP, 500 mana player against a 58 HP,
// 9 damage boss under both difficulties.
func Default() Scenario {
	return Scenario{
		Name:       "default",
		Player:     Player{HP: 50, Mana: 500},
		Boss:       Boss{HP: 58, Damage: 9},
		Difficulty: DifficultyBoth,
	}
}

// Combatants returns the duel starting stats for s.
func (s Scenario) Combatants() (duel.Player, duel.Boss) {
	return duel.Player{HP: s.Player.HP, Mana: s.Player.Mana},
		duel.Boss{HP: s.Boss.HP, Damage: s.Boss.Damage}
}

// Difficulties expands s.Difficulty into the variants to solve, normal first.
func (s Scenario) Difficulties() ([]duel.Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s.Difficulty)) {
	case "", DifficultyBoth:
		return []duel.Difficulty{duel.Normal, duel.Hard}, nil
	default:
		d, err := duel.ParseDifficulty(s.Difficulty)
		if err != nil {
			return nil, err
		}
		return []duel.Difficulty{d}, nil
	}
}

// Validate reports every problem with s.
//
// Postcondition: Returns nil when both combatants start alive, mana and
// damage are non-negative, and the difficulty is known.
func (s Scenario) Validate() error {
	var errs []error
	if s.Player.HP <= 0 {
		errs = append(errs, fmt.Errorf("player.hp must be > 0, got %d", s.Player.HP))
	}
	if s.Player.Mana < 0 {
		errs = append(errs, fmt.Errorf("player.mana must be >= 0, got %d", s.Player.Mana))
	}
	if s.Boss.HP <= 0 {
		errs = append(errs, fmt.Errorf("boss.hp must be > 0, got %d", s.Boss.HP))
	}
	if s.Boss.Damage < 0 {
		errs = append(errs, fmt.Errorf("boss.damage must be >= 0, got %d", s.Boss.Damage))
	}
	if _, err := s.Difficulties(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("scenario %q: %w", s.Name, errors.Join(errs...))
	}
	return nil
}

// Decode parses one YAML scenario, rejecting unknown fields and fractional
// numbers.
//
// Postcondition: Returns a validated Scenario; Name falls back to fallbackName.
func Decode(data []byte, fallbackName string) (Scenario, error) {
	// yaml.v3 truncates floats decoded into int fields, so check tags first.
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Scenario{}, err
	}
	if err := rejectFractions(&root, ""); err != nil {
		return Scenario{}, err
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Scenario{}, err
	}
	if s.Name == "" {
		s.Name = fallbackName
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// rejectFractions fails on the first !!float scalar under n. Scenario fields
// are all integers or strings.
func rejectFractions(n *yaml.Node, path string) error {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for i, c := range n.Content {
			p := path
			if n.Kind == yaml.SequenceNode {
				p = fmt.Sprintf("%s[%d]", path, i)
			}
			if err := rejectFractions(c, p); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			p := n.Content[i].Value
			if path != "" {
				p = path + "." + p
			}
			if err := rejectFractions(n.Content[i+1], p); err != nil {
				return err
			}
		}
	case yaml.AliasNode:
		if n.Alias != nil {
			return rejectFractions(n.Alias, path)
		}
	case yaml.ScalarNode:
		if n.ShortTag() == "!!float" {
			return fmt.Errorf("line %d: %s must be an integer, got %s", n.Line, path, n.Value)
		}
	}
	return nil
}

// LoadFile reads a YAML scenario from path.
func LoadFile(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("reading %q: %w", path, err)
	}
	s, err := Decode(data, baseName(path))
	if err != nil {
		return Scenario{}, fmt.Errorf("parsing %q: %w", path, err)
	}
	return s, nil
}

// LoadScript evaluates a Lua scenario script with runner. The script must
// return a table with the same fields as the YAML form.
//
// Precondition: runner must not be nil.
func LoadScript(ctx context.Context, path string, runner *scripting.Runner) (Scenario, error) {
	m, err := runner.EvalTable(ctx, path)
	if err != nil {
		return Scenario{}, err
	}
	// Re-encoding as YAML applies the same strict field and type checks.
	data, err := yaml.Marshal(m)
	if err != nil {
		return Scenario{}, fmt.Errorf("encoding %q result: %w", path, err)
	}
	s, err := Decode(data, baseName(path))
	if err != nil {
		return Scenario{}, fmt.Errorf("parsing %q result: %w", path, err)
	}
	return s, nil
}

// Load dispatches on the file extension: .lua files go through LoadScript,
// anything else through LoadFile.
func Load(ctx context.Context, path string, runner *scripting.Runner) (Scenario, error) {
	if strings.EqualFold(filepath.Ext(path), ".lua") {
		return LoadScript(ctx, path, runner)
	}
	return LoadFile(path)
}

// LoadDirectory reads every *.yaml and *.yml file in dir.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns scenarios sorted by Name, or an error naming the first
// file that fails to parse or a duplicated name.
func LoadDirectory(dir string) ([]Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenario dir %q: %w", dir, err)
	}
	seen := make(map[string]string)
	var out []Scenario
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		s, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("scenario %q defined in both %q and %q", s.Name, prev, path)
		}
		seen[s.Name] = path
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ParseBossStats reads a boss description of the form
//
//	Hit Points: 58
//	Damage: 9
//
// Blank lines are ignored; both keys are required.
func ParseBossStats(text string) (Boss, error) {
	var b Boss
	var haveHP, haveDamage bool
	sc := bufio.NewScanner(strings.NewReader(text))
	for line := 1; sc.Scan(); line++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		key, val, ok := strings.Cut(raw, ":")
		if !ok {
			return Boss{}, fmt.Errorf("line %d: expected \"key: value\", got %q", line, raw)
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return Boss{}, fmt.Errorf("line %d: %s: %w", line, strings.TrimSpace(key), err)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "hit points":
			b.HP, haveHP = n, true
		case "damage":
			b.Damage, haveDamage = n, true
		default:
			return Boss{}, fmt.Errorf("line %d: unknown key %q", line, strings.TrimSpace(key))
		}
	}
	if err := sc.Err(); err != nil {
		return Boss{}, err
	}
	if !haveHP || !haveDamage {
		return Boss{}, fmt.Errorf("boss stats need both \"Hit Points\" and \"Damage\"")
	}
	return b, nil
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
