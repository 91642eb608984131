package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"observatory/internal/store"
)

const (
	heroBadge    = "AI Workflow Observatory"
	heroHeadline = "Monitor. Orchestrate. Accelerate."
	heroSubtitle = "Track models, ship artifacts and kick off training and simulation runs from one place."
)

// renderHero renders the banner at the top of the dashboard.
func renderHero(width int) string {
	badge := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccent)).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccent)).
		Padding(0, 1).
		Render(heroBadge)
	headline := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorText)).Render(heroHeadline)
	subtitleStyle := Styles.Muted
	if width > 4 {
		subtitleStyle = subtitleStyle.Width(width - 2)
	}
	return lipgloss.JoinVertical(lipgloss.Left, badge, headline, subtitleStyle.Render(heroSubtitle))
}

// Stat is one label/value pair in the stats panel.
type Stat struct {
	Label string
	Value string
}

// DefaultStats are shown until the model list has loaded.
func DefaultStats() []Stat {
	return []Stat{
		{Label: "Active Models", Value: "8"},
		{Label: "Training Jobs", Value: "3"},
		{Label: "Queued Sims", Value: "5"},
		{Label: "Success Rate", Value: "97%"},
	}
}

// StatsFrom derives the panel contents from the store.
func StatsFrom(st store.Stats) []Stat {
	return []Stat{
		{Label: "Models", Value: strconv.Itoa(st.Models)},
		{Label: "Ready", Value: strconv.Itoa(st.Ready)},
		{Label: "Training", Value: strconv.Itoa(st.Training)},
		{Label: "Needs Training", Value: strconv.Itoa(st.NeedsTraining)},
		{Label: "Stale", Value: strconv.Itoa(st.Stale)},
		{Label: "With Active", Value: strconv.Itoa(st.WithActive)},
	}
}

// StatsPanel renders label/value pairs side by side. Nil or empty Items
// fall back to DefaultStats.
type StatsPanel struct {
	Items []Stat
}

func (p *StatsPanel) items() []Stat {
	if p == nil || len(p.Items) == 0 {
		return DefaultStats()
	}
	return p.Items
}

// View renders the panel.
func (p *StatsPanel) View() string {
	cell := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDim)).
		Padding(0, 2).
		MarginRight(1)
	value := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent))

	cells := make([]string, 0, len(p.items()))
	for _, s := range p.items() {
		cells = append(cells, cell.Render(value.Render(s.Value)+"\n"+Styles.Muted.Render(s.Label)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

// String lists the stats on one line, e.g. for logs.
func (p *StatsPanel) String() string {
	parts := make([]string, 0, len(p.items()))
	for _, s := range p.items() {
		parts = append(parts, s.Label+": "+s.Value)
	}
	return strings.Join(parts, ", ")
}
