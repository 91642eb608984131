package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"observatory/internal/api"
	"observatory/internal/store"
)

// DashboardView shows the hero banner, the stats panel and the model table.
type DashboardView struct {
	Store    *store.Store
	Stats    *StatsPanel
	Selected int
	// LinkURL returns the active-artifact download URL for a model.
	LinkURL func(api.ID) string

	spinner spinner.Model
	bar     progress.Model
	loading bool
	width   int
}

// Ensure DashboardView implements View.
var _ View = (*DashboardView)(nil)

// NewDashboardView creates a dashboard over s. Rows arrive via the store.
func NewDashboardView(s *store.Store) *DashboardView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	return &DashboardView{
		Store:   s,
		Stats:   &StatsPanel{},
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		loading: true,
	}
}

// Init implements View.
func (d *DashboardView) Init() tea.Cmd {
	return d.spinner.Tick
}

// SetLoading sets the loading state and returns a command to start/stop spinner.
func (d *DashboardView) SetLoading(loading bool) tea.Cmd {
	d.loading = loading
	if loading {
		return d.spinner.Tick
	}
	return nil
}

// Loading reports whether the first model list is still outstanding.
func (d *DashboardView) Loading() bool {
	return d.loading
}

// SelectedRow returns the row under the cursor.
func (d *DashboardView) SelectedRow() (store.Row, bool) {
	if d.Store == nil {
		return store.Row{}, false
	}
	d.clamp()
	return d.Store.At(d.Selected)
}

func (d *DashboardView) clamp() {
	n := 0
	if d.Store != nil {
		n = d.Store.Len()
	}
	if d.Selected >= n {
		d.Selected = n - 1
	}
	if d.Selected < 0 {
		d.Selected = 0
	}
}

// Update implements View.
func (d *DashboardView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		return d, nil
	case spinner.TickMsg:
		if d.loading {
			var cmd tea.Cmd
			d.spinner, cmd = d.spinner.Update(msg)
			return d, cmd
		}
		return d, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			d.Selected++
		case "k", "up":
			d.Selected--
		case "g", "home":
			d.Selected = 0
		case "G", "end":
			if d.Store != nil {
				d.Selected = d.Store.Len() - 1
			}
		}
		d.clamp()
	}
	return d, nil
}

// View implements View.
func (d *DashboardView) View() string {
	d.clamp()
	var b strings.Builder
	b.WriteString(renderHero(d.width) + "\n\n")
	b.WriteString(d.Stats.View() + "\n\n")

	title := Styles.Title.Render("Models")
	if d.loading {
		title += " " + d.spinner.View()
	}
	b.WriteString(title + "\n")

	var rows []store.Row
	if d.Store != nil {
		rows = d.Store.Rows()
	}
	switch {
	case len(rows) == 0 && d.loading:
		b.WriteString(Styles.Empty.Render("Loading models…") + "\n")
	case len(rows) == 0:
		b.WriteString(Styles.Empty.Render("No models yet. Press c to create one.") + "\n")
	default:
		b.WriteString(renderModelTable(rows, d.Selected, d.LinkURL, d.width) + "\n")
	}

	if uploads := renderUploads(rows, d.bar); uploads != "" {
		b.WriteString("\n" + Styles.Section.Render("Uploads") + "\n" + uploads)
	}
	b.WriteString("\n" + Styles.Hint.Render("Press [SPC] for commands  enter: open  c: create  u: upload  t: train  s: simulate  n: needs training  o: download  q: quit"))
	return b.String()
}
