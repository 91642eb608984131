package ui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"observatory/internal/api"
	"observatory/internal/store"
	"observatory/internal/ui/textutil"
)

// noActiveArtifact is shown for models without an active artifact.
const noActiveArtifact = "No active artifact"

const maxNameWidth = 28

var modelTableHeaders = []string{"Name", "Task", "Status", "Artifacts", "Active artifact"}

// activeArtifactCell renders the active artifact as a terminal hyperlink to
// its download URL, or the empty-state text.
func activeArtifactCell(m api.Model, url func(api.ID) string) string {
	if !m.HasActiveArtifact() {
		return Styles.Empty.Render(noActiveArtifact)
	}
	label := m.ActiveArtifact
	if m.ActiveVersion != "" {
		label += " (" + m.ActiveVersion + ")"
	}
	if url == nil {
		return label
	}
	return textutil.Hyperlink(url(m.ID), Styles.Link.Render(label))
}

func artifactCountCell(r store.Row) string {
	if !r.ArtifactsLoaded {
		return "…"
	}
	return strconv.Itoa(len(r.Artifacts))
}

// renderModelTable renders rows with the selected one highlighted.
func renderModelTable(rows []store.Row, selected int, url func(api.ID) string, width int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDim))).
		Headers(modelTableHeaders...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return style.Bold(true).Foreground(lipgloss.Color(ColorMuted))
			case row == selected:
				return style.Foreground(lipgloss.Color(ColorHighlight)).Bold(true)
			}
			return style.Foreground(lipgloss.Color(ColorText))
		})
	if width > 0 {
		t = t.Width(width)
	}
	for i, r := range rows {
		name := textutil.Truncate(r.Model.Name, maxNameWidth)
		if i == selected {
			name = "▸ " + name
		}
		t = t.Row(
			name,
			r.Model.Task.Label(),
			StatusBadge(r.Model.Status),
			artifactCountCell(r),
			activeArtifactCell(r.Model, url),
		)
	}
	return t.Render()
}

// renderUploads renders one progress bar per model with upload state.
func renderUploads(rows []store.Row, bar progress.Model) string {
	var out string
	for _, r := range rows {
		if r.Upload == nil {
			continue
		}
		state := "uploading"
		switch {
		case r.Upload.Done && r.Upload.Err != nil:
			state = Styles.Error.Render("failed")
		case r.Upload.Done:
			state = Styles.Status.Render("done")
		}
		out += textutil.PadRightVisual(textutil.Truncate(r.Model.Name, 20), 20) + " " +
			bar.ViewAs(float64(r.Upload.Percent)/100) + " " + state + "\n"
	}
	return out
}
