package ui

// AppMode represents the top-level application mode.
type AppMode int

const (
	ModeDashboard AppMode = iota
	ModeModelDetail
)

func (m AppMode) String() string {
	switch m {
	case ModeDashboard:
		return "Dashboard"
	case ModeModelDetail:
		return "ModelDetail"
	default:
		return "Unknown"
	}
}
