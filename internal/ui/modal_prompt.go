package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// PromptModal asks for a single value. Submit turns the trimmed input into
// a message; returning nil keeps the modal open.
type PromptModal struct {
	Title  string
	Label  string
	input  textinput.Model
	submit func(value string) tea.Msg
	errMsg string
}

// Ensure PromptModal implements View.
var _ View = (*PromptModal)(nil)

// NewPromptModal creates a prompt prefilled with value.
func NewPromptModal(title, label, value string, submit func(string) tea.Msg) *PromptModal {
	ti := textinput.New()
	ti.SetValue(value)
	ti.Width = 24
	ti.CursorEnd()
	ti.Focus()
	return &PromptModal{Title: title, Label: label, input: ti, submit: submit}
}

// Value returns the trimmed input.
func (m *PromptModal) Value() string {
	return strings.TrimSpace(m.input.Value())
}

// Init implements View.
func (m *PromptModal) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements View.
func (m *PromptModal) Update(msg tea.Msg) (View, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return DismissModalMsg{} }
		case "enter":
			out := m.submit(m.Value())
			if out == nil {
				m.errMsg = "invalid value"
				return m, nil
			}
			m.errMsg = ""
			return m, func() tea.Msg { return out }
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements View.
func (m *PromptModal) View() string {
	content := ModalStyles.Title.Render(m.Title) + "\n\n"
	content += ModalStyles.Label.Render(m.Label) + "\n" + m.input.View() + "\n"
	if m.errMsg != "" {
		content += Styles.Error.Render(m.errMsg) + "\n"
	}
	content += "\n" + ModalStyles.Help.Render("Enter: start  Esc: cancel")
	return ModalStyles.BoxDefault.Render(content)
}

// AlertModal shows an error that must be acknowledged.
type AlertModal struct {
	Title   string
	Message string
}

// Ensure AlertModal implements View.
var _ View = (*AlertModal)(nil)

// NewAlertModal creates an alert.
func NewAlertModal(title, message string) *AlertModal {
	return &AlertModal{Title: title, Message: message}
}

// Init implements View.
func (m *AlertModal) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (m *AlertModal) Update(msg tea.Msg) (View, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc", "enter":
			return m, func() tea.Msg { return DismissModalMsg{} }
		}
	}
	return m, nil
}

// View implements View.
func (m *AlertModal) View() string {
	content := ModalStyles.TitleWarning.Render(m.Title) + "\n\n"
	content += ModalStyles.Label.Render(m.Message) + "\n\n"
	content += ModalStyles.Help.Render("Enter/Esc: dismiss")
	return ModalStyles.BoxWarning.Render(content)
}
