package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"

	"observatory/internal/api"
)

// ConfirmModal is a generic confirmation modal that can be used for various actions.
// Enter or y confirms; Esc cancels.
type ConfirmModal struct {
	Title       string
	Label       string
	Details     string // Optional warning details
	OnConfirm   func() tea.Msg
	boxStyle    lipgloss.Style
	titleStyle  lipgloss.Style
	detailStyle lipgloss.Style
	// Artifact is set for delete confirmations.
	Artifact api.Artifact
}

// Ensure ConfirmModal implements View.
var _ View = (*ConfirmModal)(nil)

// NewConfirmModal creates a generic confirmation modal.
func NewConfirmModal(title, label string, onConfirm func() tea.Msg) *ConfirmModal {
	return &ConfirmModal{
		Title:       title,
		Label:       label,
		OnConfirm:   onConfirm,
		boxStyle:    ModalStyles.BoxWarning,
		titleStyle:  ModalStyles.TitleWarning,
		detailStyle: ModalStyles.Details,
	}
}

// WithDetails adds warning details to the modal.
func (m *ConfirmModal) WithDetails(details string) *ConfirmModal {
	m.Details = details
	return m
}

// NewDeleteArtifactConfirmModal asks before deleting an artifact. Nothing is
// sent to the backend unless the user confirms.
func NewDeleteArtifactConfirmModal(model api.Model, a api.Artifact) *ConfirmModal {
	modal := NewConfirmModal(
		"Delete artifact?",
		fmt.Sprintf("%s %s (%s)", a.Filename, a.Version, humanize.Bytes(uint64(a.Size))),
		func() tea.Msg {
			return DeleteArtifactMsg{ModelID: model.ID, ArtifactID: a.ID}
		},
	)
	modal.Artifact = a
	if model.ActiveArtifact == a.Filename && model.ActiveVersion == a.Version {
		modal.WithDetails(fmt.Sprintf("\nThis is the active artifact of %s", model.Name))
	}
	return modal
}

// Init implements View.
func (m *ConfirmModal) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (m *ConfirmModal) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "n":
			return m, func() tea.Msg { return DismissModalMsg{} }
		case "enter", "y":
			if m.OnConfirm != nil {
				return m, m.OnConfirm
			}
		}
	}
	return m, nil
}

// View implements View.
func (m *ConfirmModal) View() string {
	content := m.titleStyle.Render(m.Title) + "\n\n"
	content += ModalStyles.Label.Render(m.Label)
	if m.Details != "" {
		content += "\n" + m.detailStyle.Render(m.Details)
	}
	content += "\n\n" + ModalStyles.Help.Render("y/Enter: confirm  n/Esc: cancel")
	return m.boxStyle.Render(content)
}
