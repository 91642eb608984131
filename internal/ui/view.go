package ui

import tea "github.com/charmbracelet/bubbletea"

// View is a screen or an overlay. The dashboard and the model detail screen
// are the base views; modals and the activity window stack above them.
// Update returns the view to keep, which lets a screen replace itself.
type View interface {
	Init() tea.Cmd
	Update(tea.Msg) (View, tea.Cmd)
	View() string
}

// currentView returns the base view of the current mode. Detail mode without
// a detail view falls back to the dashboard.
func (a *appModelAdapter) currentView() View {
	if a.Mode == ModeModelDetail && a.Detail != nil {
		return a.Detail
	}
	return a.Dashboard
}

// setCurrentView stores the view returned by Update for the current mode.
// A view of the wrong type for the mode is dropped.
func (a *appModelAdapter) setCurrentView(v View) {
	switch a.Mode {
	case ModeDashboard:
		if d, ok := v.(*DashboardView); ok {
			a.Dashboard = d
		}
	case ModeModelDetail:
		if d, ok := v.(*ModelDetailView); ok {
			a.Detail = d
		}
	}
}
