package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"observatory/internal/api"
)

const (
	focusName = "name"
	focusTask = "task"
)

// CreateModelModal collects a name and a task for a new model.
// The task defaults to generation.
type CreateModelModal struct {
	input textinput.Model
	task  int
	focus *formFocus
}

// Ensure CreateModelModal implements View.
var _ View = (*CreateModelModal)(nil)

// NewCreateModelModal creates a create-model modal.
func NewCreateModelModal() *CreateModelModal {
	ti := textinput.New()
	ti.Placeholder = "model-name"
	ti.Width = 40

	m := &CreateModelModal{input: ti}
	m.focus = newFormFocus(
		formField{id: focusName, input: &m.input},
		formField{id: focusTask},
	)
	return m
}

// Name returns the trimmed name input.
func (m *CreateModelModal) Name() string {
	return strings.TrimSpace(m.input.Value())
}

// Task returns the selected task.
func (m *CreateModelModal) Task() api.Task {
	return api.Tasks[m.task]
}

// Reset clears the form after a successful create.
func (m *CreateModelModal) Reset() {
	m.input.SetValue("")
	m.task = 0
	m.focus.Set(focusName)
}

func (m *CreateModelModal) cycleTask(delta int) {
	n := len(api.Tasks)
	m.task = ((m.task+delta)%n + n) % n
}

// Init implements View.
func (m *CreateModelModal) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements View.
func (m *CreateModelModal) Update(msg tea.Msg) (View, tea.Cmd) {
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
			name, task := m.Name(), m.Task()
			if name == "" {
				return m, nil
			}
			return m, func() tea.Msg { return CreateModelMsg{Name: name, Task: task} }
		}
		if m.focus.Is(focusTask) {
			switch msg.String() {
			case "left", "h":
				m.cycleTask(-1)
			case "right", "l", " ":
				m.cycleTask(1)
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements View.
func (m *CreateModelModal) View() string {
	label := func(id, text string) string {
		if m.focus.Is(id) {
			return ModalStyles.Focused.Render("▸ " + text)
		}
		return ModalStyles.Label.Render("  " + text)
	}

	tasks := make([]string, len(api.Tasks))
	for i, t := range api.Tasks {
		if i == m.task {
			tasks[i] = ModalStyles.Focused.Render("[" + t.Label() + "]")
		} else {
			tasks[i] = Styles.Muted.Render(t.Label())
		}
	}

	content := ModalStyles.Title.Render("Create model") + "\n\n"
	content += label(focusName, "Name") + "\n  " + m.input.View() + "\n\n"
	content += label(focusTask, "Task") + "\n  " + strings.Join(tasks, " ") + "\n\n"
	content += ModalStyles.Help.Render("Tab: next field  ←/→: task  Enter: create  Esc: cancel")
	return ModalStyles.BoxDefault.Render(content)
}
