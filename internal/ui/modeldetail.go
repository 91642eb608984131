package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	humanize "github.com/dustin/go-humanize"

	"observatory/internal/api"
	"observatory/internal/store"
)

// artifactItem implements list.Item for an artifact.
type artifactItem struct {
	api.Artifact
	active bool
}

func (a artifactItem) FilterValue() string { return a.Filename }
func (a artifactItem) Title() string {
	version := a.Version
	if version == "" {
		version = "-"
	}
	line := fmt.Sprintf("%-14s %-28s %9s", version, a.Filename, humanize.Bytes(uint64(a.Size)))
	if a.IsArchive {
		line += "  archive"
	}
	if a.active {
		line += "  ● active"
	}
	return line
}
func (a artifactItem) Description() string { return "" }

// ModelDetailView lists the artifacts of one model.
type ModelDetailView struct {
	ModelID api.ID
	Store   *store.Store
	LinkURL func(api.ID) string

	list list.Model
}

// Ensure ModelDetailView implements View.
var _ View = (*ModelDetailView)(nil)

// NewModelDetailView creates a detail view for the model with id.
func NewModelDetailView(id api.ID, s *store.Store) *ModelDetailView {
	l := list.New(nil, NewCompactListDelegate(), 80, 12)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	v := &ModelDetailView{ModelID: id, Store: s, list: l}
	v.Sync()
	return v
}

// Sync reloads the artifact list from the store, keeping the cursor on the
// same artifact when it still exists.
func (v *ModelDetailView) Sync() {
	row, ok := v.row()
	if !ok {
		v.list.SetItems(nil)
		return
	}
	var keep api.ID
	if sel := v.SelectedArtifact(); sel != nil {
		keep = sel.ID
	}
	items := make([]list.Item, len(row.Artifacts))
	idx := 0
	for i, a := range row.Artifacts {
		items[i] = artifactItem{
			Artifact: a,
			active:   row.Model.ActiveArtifact == a.Filename && row.Model.ActiveVersion == a.Version,
		}
		if a.ID == keep {
			idx = i
		}
	}
	v.list.SetItems(items)
	if len(items) > 0 {
		v.list.Select(idx)
	}
}

func (v *ModelDetailView) row() (store.Row, bool) {
	if v.Store == nil {
		return store.Row{}, false
	}
	return v.Store.Row(v.ModelID)
}

// SelectedArtifact returns the artifact under the cursor, or nil.
func (v *ModelDetailView) SelectedArtifact() *api.Artifact {
	item, ok := v.list.SelectedItem().(artifactItem)
	if !ok {
		return nil
	}
	a := item.Artifact
	return &a
}

// Init implements View.
func (v *ModelDetailView) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (v *ModelDetailView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.list.SetWidth(msg.Width)
		h := msg.Height - 10
		if h < 5 {
			h = 5
		}
		v.list.SetHeight(h)
		return v, nil
	case tea.KeyMsg:
		if msg.String() == "esc" {
			return v, nil // Caller handles back navigation
		}
	}
	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// View implements View.
func (v *ModelDetailView) View() string {
	row, ok := v.row()
	if !ok {
		return "← " + Styles.Empty.Render("Model no longer exists") + "\n\n" + Styles.Hint.Render("esc: back")
	}
	m := row.Model

	var b strings.Builder
	b.WriteString("← " + Styles.Title.Render(m.Name) + "  " + Styles.Muted.Render(m.Task.Label()) + "  " + StatusBadge(m.Status) + "\n")
	b.WriteString(Styles.Muted.Render("Active: ") + activeArtifactCell(m, v.LinkURL) + "\n")
	if row.Upload != nil {
		b.WriteString(Styles.Muted.Render(fmt.Sprintf("Upload: %d%%", row.Upload.Percent)) + "\n")
	}
	b.WriteString("\n" + Styles.Section.Render("Artifacts") + "\n")

	switch {
	case !row.ArtifactsLoaded:
		b.WriteString("  " + Styles.Empty.Render("Loading artifacts…") + "\n")
	case len(row.Artifacts) == 0:
		b.WriteString("  " + Styles.Empty.Render("No artifacts yet. Press u to upload one.") + "\n")
	default:
		b.WriteString(v.list.View() + "\n")
	}
	b.WriteString("\n" + Styles.Hint.Render("u: upload  p: promote  x: delete  o: download  t: train  s: simulate  esc: back"))
	return b.String()
}
