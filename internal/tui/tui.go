// Package tui pages through a duel replay one half-turn at a time.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cory-johannsen/spellduel/internal/game/duel"
	"github.com/cory-johannsen/spellduel/internal/game/replay"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	playerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	bossStyle = playerStyle.
			Background(lipgloss.Color("#875F5F"))

	statsStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	winStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")).Bold(true)
	lossStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D75F5F")).Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
)

// Model is the bubbletea model for a replay viewer.
type Model struct {
	log      *replay.Log
	index    int
	viewport viewport.Model
	width    int
	height   int
	quitting bool
}

// NewModel creates a viewer positioned on the first half-turn.
//
// Precondition: log must not be nil.
func NewModel(log *replay.Log) Model {
	m := Model{log: log, viewport: viewport.New(60, 12), width: 80, height: 18}
	m.refresh()
	return m
}

// Index returns the zero-based half-turn on screen.
func (m Model) Index() int { return m.index }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "n", "right", "l", " ":
			m.move(1)
			return m, nil
		case "p", "left", "h":
			m.move(-1)
			return m, nil
		case "g", "home":
			m.move(-len(m.log.Blocks))
			return m, nil
		case "G", "end":
			m.move(len(m.log.Blocks))
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width * 3 / 4
		m.viewport.Height = max(msg.Height-6, 1)
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) move(delta int) {
	last := len(m.log.Blocks) - 1
	m.index = min(max(m.index+delta, 0), max(last, 0))
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderBlock())
	m.viewport.GotoTop()
}

func (m Model) renderBlock() string {
	if len(m.log.Blocks) == 0 {
		return "No spells were cast."
	}
	b := m.log.Blocks[m.index]
	lines := b.Lines()
	style := playerStyle
	if b.Phase == duel.PhaseBoss {
		style = bossStyle
	}
	lines[0] = style.Width(m.viewport.Width).Render(lines[0])
	if n := len(lines) - 1; b.Outcome.Terminal() {
		if b.Outcome.IsWin() {
			lines[n] = winStyle.Render(lines[n])
		} else {
			lines[n] = lossStyle.Render(lines[n])
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStats() string {
	snap := m.log.Final
	if len(m.log.Blocks) > 0 {
		snap = blockEnd(m.log.Blocks[m.index])
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("PLAYER") + "\n")
	fmt.Fprintf(&sb, "HP: %d\nArmor: %d\nMana: %d\nSpent: %d\n\n",
		snap.Player.HP, snap.Player.Armor, snap.Player.Mana, snap.ManaSpent)
	sb.WriteString(titleStyle.Render("BOSS") + "\n")
	fmt.Fprintf(&sb, "HP: %d\nDamage: %d\n\n", snap.Boss.HP, snap.Boss.Damage)
	sb.WriteString(titleStyle.Render("DUEL") + "\n")
	fmt.Fprintf(&sb, "Difficulty: %s\nOutcome: %s\n", m.log.Difficulty, m.log.Outcome)
	return statsStyle.Width(max(m.width-m.viewport.Width-2, 10)).Height(m.viewport.Height).Render(sb.String())
}

// blockEnd is the combatant view after the block's last step.
func blockEnd(b replay.Block) duel.Snapshot {
	if n := len(b.Steps); n > 0 {
		return b.Steps[n-1].After()
	}
	return b.Start
}

func (m Model) header() string {
	if len(m.log.Blocks) == 0 {
		return titleStyle.Render("Replay")
	}
	b := m.log.Blocks[m.index]
	return titleStyle.Render(fmt.Sprintf("Turn %d: %s (%d/%d)", b.Turn, b.Spell, m.index+1, len(m.log.Blocks)))
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	main := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.renderStats())
	help := helpStyle.Render("n/→ next  p/← previous  g/G first/last  q quit")
	return "\n" + lipgloss.JoinVertical(lipgloss.Left, m.header(), "", main, "", help) + "\n"
}

// Run shows log full-screen until the user quits.
func Run(log *replay.Log) error {
	p := tea.NewProgram(NewModel(log), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
