package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"observatory/internal/progress"
)

// maxActivityEvents bounds the activity scrollback.
const maxActivityEvents = 200

// ActivityWindow displays the session's transfers and job submissions with
// scrollback. Shown as overlay; Esc dismisses.
type ActivityWindow struct {
	events   []progress.Event
	viewport viewport.Model
	width    int
	height   int
}

// Ensure ActivityWindow implements View.
var _ View = (*ActivityWindow)(nil)

const defaultActivityWidth = 70
const defaultActivityHeight = 18

// NewActivityWindow creates an empty activity window.
func NewActivityWindow() *ActivityWindow {
	vp := viewport.New(defaultActivityWidth, defaultActivityHeight)
	vp.Style = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(0, 1)
	w := &ActivityWindow{
		viewport: vp,
		width:    defaultActivityWidth,
		height:   defaultActivityHeight,
	}
	w.refreshContent()
	return w
}

// Record appends an event, dropping the oldest past maxActivityEvents.
func (p *ActivityWindow) Record(ev progress.Event) {
	p.events = append(p.events, ev)
	if over := len(p.events) - maxActivityEvents; over > 0 {
		p.events = append(p.events[:0:0], p.events[over:]...)
	}
	p.refreshContent()
}

// Events returns the recorded events, oldest first.
func (p *ActivityWindow) Events() []progress.Event {
	return append([]progress.Event(nil), p.events...)
}

// Init implements View.
func (p *ActivityWindow) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (p *ActivityWindow) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" || msg.String() == "q" {
			return p, func() tea.Msg { return DismissModalMsg{} }
		}
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		w := msg.Width - 4
		h := msg.Height/2 + 4
		if w < 40 {
			w = 40
		}
		if h < 12 {
			h = 12
		}
		p.viewport.Width = w
		p.viewport.Height = h
		p.refreshContent()
		return p, nil
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

// View implements View.
func (p *ActivityWindow) View() string {
	header := Styles.Title.Render("Activity") + Styles.Muted.Render("  Esc: close")
	return header + "\n" + p.viewport.View()
}

// refreshContent rebuilds the viewport content from accumulated events.
func (p *ActivityWindow) refreshContent() {
	lines := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		line := fmt.Sprintf("[%s] %s %s", ev.Timestamp.Format("15:04:05"), statusIcon(ev.Status), ev.Message)
		if ev.Status == progress.StatusRunning && ev.Percent > 0 {
			line += fmt.Sprintf(" (%d%%)", ev.Percent)
		}
		lines = append(lines, line)
	}
	content := strings.Join(lines, "\n")
	if content == "" {
		content = Styles.Empty.Render("Nothing has happened yet")
	}
	p.viewport.SetContent(content)
	p.viewport.GotoBottom()
}

func statusIcon(s progress.Status) string {
	switch s {
	case progress.StatusRunning:
		return "●"
	case progress.StatusDone:
		return "✓"
	case progress.StatusError:
		return "✗"
	default:
		return "•"
	}
}
