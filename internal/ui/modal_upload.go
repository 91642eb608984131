package ui

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"observatory/internal/api"
)

const (
	focusPath    = "path"
	focusVersion = "version"
	focusPromote = "promote"
)

// UploadModal collects a file path, an optional version and the promote
// flag for one model. The modal is reused across uploads; the path is
// cleared once an upload completes.
type UploadModal struct {
	ModelID   api.ID
	ModelName string

	path    textinput.Model
	version textinput.Model
	promote bool
	focus   *formFocus

	labeler api.VersionLabeler
	now     func() time.Time
}

// Ensure UploadModal implements View.
var _ View = (*UploadModal)(nil)

// NewUploadModal creates an upload form. A nil labeler means
// api.TimestampZipLabeler; a nil now means time.Now.
func NewUploadModal(labeler api.VersionLabeler, now func() time.Time) *UploadModal {
	if now == nil {
		now = time.Now
	}
	path := textinput.New()
	path.Placeholder = "/path/to/policy.zip"
	path.Width = 48

	version := textinput.New()
	version.Placeholder = "auto"
	version.Width = 24

	m := &UploadModal{path: path, version: version, labeler: labeler, now: now}
	m.focus = newFormFocus(
		formField{id: focusPath, input: &m.path},
		formField{id: focusVersion, input: &m.version},
		formField{id: focusPromote},
	)
	return m
}

// Target points the form at a model, keeping whatever was typed before.
func (m *UploadModal) Target(id api.ID, name string) {
	if id != m.ModelID {
		m.version.SetValue("")
		m.promote = false
	}
	m.ModelID = id
	m.ModelName = name
	m.focus.Set(focusPath)
}

// ResetPath clears the file selection.
func (m *UploadModal) ResetPath() {
	m.path.SetValue("")
}

// Path returns the trimmed file path.
func (m *UploadModal) Path() string {
	return strings.TrimSpace(m.path.Value())
}

// SetPath fills the path field.
func (m *UploadModal) SetPath(p string) {
	m.path.SetValue(p)
}

// SetVersion fills the version field.
func (m *UploadModal) SetVersion(v string) {
	m.version.SetValue(v)
}

// SetPromote sets the promote flag.
func (m *UploadModal) SetPromote(p bool) {
	m.promote = p
}

// ResolvedVersion is the label that will be sent, or "" when none.
func (m *UploadModal) ResolvedVersion() string {
	p := m.Path()
	if p == "" {
		return strings.TrimSpace(m.version.Value())
	}
	return api.ResolveVersion(m.version.Value(), filepath.Base(p), m.now(), m.labeler)
}

// Init implements View.
func (m *UploadModal) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements View.
func (m *UploadModal) Update(msg tea.Msg) (View, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return DismissModalMsg{} }
		case "tab", "down":
			m.focus.Move(1)
			return m, nil
		case "shift+tab", "up":
			m.focus.Move(-1)
			return m, nil
		case "enter":
			path := m.Path()
			if path == "" {
				return m, nil
			}
			up := UploadArtifactMsg{
				ModelID: m.ModelID,
				Path:    path,
				Version: strings.TrimSpace(m.version.Value()),
				Promote: m.promote,
			}
			return m, func() tea.Msg { return up }
		}
		if m.focus.Is(focusPromote) {
			switch msg.String() {
			case " ":
				m.promote = !m.promote
			case "y":
				m.promote = true
			case "n":
				m.promote = false
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.focus.Current() {
	case focusPath:
		m.path, cmd = m.path.Update(msg)
	case focusVersion:
		m.version, cmd = m.version.Update(msg)
	}
	return m, cmd
}

// View implements View.
func (m *UploadModal) View() string {
	label := func(id, text string) string {
		if m.focus.Is(id) {
			return ModalStyles.Focused.Render("▸ " + text)
		}
		return ModalStyles.Label.Render("  " + text)
	}
	check := "[ ]"
	if m.promote {
		check = "[x]"
	}
	preview := m.ResolvedVersion()
	if preview == "" {
		preview = "assigned by backend"
	}

	content := ModalStyles.Title.Render("Upload artifact to "+m.ModelName) + "\n\n"
	content += label(focusPath, "File") + "\n  " + m.path.View() + "\n\n"
	content += label(focusVersion, "Version") + "\n  " + m.version.View() + "\n"
	content += "  " + Styles.Muted.Render("will upload as: "+preview) + "\n\n"
	content += label(focusPromote, check+" Promote to active") + "\n\n"
	content += ModalStyles.Help.Render("Tab: next field  Space: toggle promote  Enter: upload  Esc: cancel")
	return ModalStyles.BoxDefault.Render(content)
}
