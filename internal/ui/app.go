package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"observatory/internal/api"
	"observatory/internal/progress"
	"observatory/internal/store"
)

// Settings are the user-tunable knobs of the dashboard.
type Settings struct {
	// DownloadDir receives downloaded artifacts. Empty means the working directory.
	DownloadDir string
	// UploadClearDelay is how long a finished upload stays visible.
	UploadClearDelay time.Duration
	// RefreshInterval reloads the model list periodically. Zero disables it.
	RefreshInterval time.Duration
	// Epochs and Scenario prefill the train and simulate prompts.
	Epochs   int
	Scenario string
}

// DefaultSettings returns the settings used when no config is given.
func DefaultSettings() Settings {
	return Settings{
		UploadClearDelay: 1500 * time.Millisecond,
		Epochs:           api.DefaultEpochs,
		Scenario:         api.DefaultScenario,
	}
}

// AppModel is the root model. It switches between the Dashboard and
// ModelDetail modes and owns the overlay stack, the status line and the
// view store.
type AppModel struct {
	Mode       AppMode
	Dashboard  *DashboardView
	Detail     *ModelDetailView
	KeyHandler *KeyHandler
	Overlays   OverlayStack

	Store    *store.Store
	Backend  Backend
	Settings Settings
	// Labeler names unlabeled uploads; nil means api.TimestampZipLabeler.
	Labeler api.VersionLabeler
	Now     func() time.Time

	Status        string
	StatusIsError bool
	StatusMuted   bool

	creating    bool
	createModal *CreateModelModal
	uploadModal *UploadModal
	activity    *ActivityWindow
	width       int
	height      int
}

// Ensure AppModel can be used as tea.Model via adapter.
var _ tea.Model = (*appModelAdapter)(nil)

// appModelAdapter wraps AppModel to implement tea.Model.
type appModelAdapter struct {
	*AppModel
}

// NewAppModel creates the root application model talking to b.
func NewAppModel(b Backend, settings Settings) *AppModel {
	s := store.New()
	a := &AppModel{
		Mode:       ModeDashboard,
		Dashboard:  NewDashboardView(s),
		KeyHandler: NewKeyHandler(newKeymap()),
		Store:      s,
		Backend:    b,
		Settings:   settings,
		Now:        time.Now,
	}
	a.Dashboard.LinkURL = b.ActiveDownloadURL
	a.createModal = NewCreateModelModal()
	a.uploadModal = NewUploadModal(nil, a.now)
	a.activity = NewActivityWindow()
	return a
}

// AsTeaModel returns a tea.Model adapter for use with tea.NewProgram.
func (m *AppModel) AsTeaModel() tea.Model {
	return &appModelAdapter{AppModel: m}
}

func (m *AppModel) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// leaderGroups labels the leader keys that open a submenu.
var leaderGroups = map[string]string{
	"m": "Model",
	"a": "Artifact",
}

// newKeymap binds the single-key shortcuts and their SPC equivalents.
func newKeymap() *Keymap {
	dashboard := []AppMode{ModeDashboard}
	detail := []AppMode{ModeModelDetail}
	return NewKeymap(leaderGroups,
		Action{Key: "q", Leader: "q", Desc: "Quit", Msg: tea.QuitMsg{}},
		Action{Key: "r", Leader: "r", Desc: "Refresh", Msg: RefreshMsg{}},
		Action{Leader: "l", Desc: "Activity log", Msg: ShowActivityMsg{}},

		Action{Key: "c", Leader: "m c", Desc: "Create model", Msg: ShowCreateModelMsg{}, Modes: dashboard},
		Action{Key: "n", Leader: "m n", Desc: "Mark needs training", Msg: RequestNeedsTrainingMsg{}},
		Action{Key: "t", Leader: "m t", Desc: "Start training", Msg: ShowTrainMsg{}},
		Action{Key: "s", Leader: "m s", Desc: "Start simulation", Msg: ShowSimulateMsg{}},

		Action{Key: "u", Leader: "a u", Desc: "Upload artifact", Msg: ShowUploadMsg{}},
		Action{Key: "o", Leader: "a d", Desc: "Download artifact", Msg: RequestDownloadMsg{}},
		Action{Key: "p", Leader: "a p", Desc: "Promote artifact", Msg: RequestPromoteMsg{}, Modes: detail},
		Action{Key: "x", Leader: "a x", Desc: "Delete artifact", Msg: ShowDeleteArtifactMsg{}, Modes: detail},
	)
}

// Init implements tea.Model.
func (a *appModelAdapter) Init() tea.Cmd {
	return tea.Batch(
		a.Dashboard.Init(),
		loadModelsCmd(a.Backend),
		tickCmd(a.Settings.RefreshInterval),
	)
}

// Update implements tea.Model.
func (a *appModelAdapter) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		var cmds []tea.Cmd
		_, cmd := a.Dashboard.Update(msg)
		cmds = append(cmds, cmd)
		if a.Detail != nil {
			_, cmd = a.Detail.Update(msg)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)
	case tea.KeyMsg:
		return a.handleKey(msg)
	case tickMsg:
		return a, tea.Batch(loadModelsCmd(a.Backend), tickCmd(a.Settings.RefreshInterval))
	case RefreshMsg:
		return a.handleRefresh()
	case OpenModelMsg:
		return a.handleOpenModel(msg)
	case DismissModalMsg:
		a.Overlays.Pop()
		return a, nil
	case ShowActivityMsg:
		if a.width > 0 {
			a.activity.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
		}
		a.Overlays.Push(Overlay{View: a.activity, Dismiss: "esc"})
		return a, nil

	// Data
	case ModelsLoadedMsg:
		return a.handleModelsLoaded(msg)
	case ArtifactsLoadedMsg:
		return a.handleArtifactsLoaded(msg)

	// Models
	case ShowCreateModelMsg:
		return a.handleShowCreateModel()
	case CreateModelMsg:
		return a.handleCreateModel(msg)
	case ModelCreatedMsg:
		return a.handleModelCreated(msg)
	case RequestNeedsTrainingMsg:
		return a.handleRequestNeedsTraining()
	case MarkNeedsTrainingMsg:
		return a.handleMarkNeedsTraining(msg)
	case ShowTrainMsg:
		return a.handleShowTrain()
	case TrainMsg:
		return a.handleTrain(msg)
	case ShowSimulateMsg:
		return a.handleShowSimulate()
	case SimulateMsg:
		return a.handleSimulate(msg)
	case MutationDoneMsg:
		return a.handleMutationDone(msg)

	// Artifacts
	case ShowUploadMsg:
		return a.handleShowUpload()
	case UploadArtifactMsg:
		return a.handleUploadArtifact(msg)
	case UploadProgressMsg:
		return a.handleUploadProgress(msg)
	case UploadDoneMsg:
		return a.handleUploadDone(msg)
	case ClearUploadMsg:
		a.Store.ClearUpload(msg.ModelID, msg.Seq)
		return a, nil
	case RequestPromoteMsg:
		return a.handleRequestPromote()
	case PromoteArtifactMsg:
		return a.handlePromoteArtifact(msg)
	case ShowDeleteArtifactMsg:
		return a.handleShowDeleteArtifact()
	case DeleteArtifactMsg:
		return a.handleDeleteArtifact(msg)
	case RequestDownloadMsg:
		return a.handleRequestDownload()
	case DownloadActiveMsg:
		a.setStatus("Downloading active artifact…", false)
		return a, downloadActiveCmd(a.Backend, msg.ModelID, msg.Filename, a.Settings.DownloadDir)
	case DownloadArtifactMsg:
		a.setStatus("Downloading "+msg.Artifact.Filename+"…", false)
		return a, downloadArtifactCmd(a.Backend, msg.ModelID, msg.Artifact, a.Settings.DownloadDir)
	case DownloadDoneMsg:
		return a.handleDownloadDone(msg)
	}

	// Everything else (spinner ticks, cursor blinks) goes to the top
	// overlay and the current view.
	var cmds []tea.Cmd
	if cmd, ok := a.Overlays.UpdateTop(msg); ok {
		cmds = append(cmds, cmd)
	}
	v, cmd := a.currentView().Update(msg)
	a.setCurrentView(v)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

// handleKey routes keys: open overlays first, then keybinds, then app
// navigation, then the current view.
func (a *appModelAdapter) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}
	if a.Overlays.Len() > 0 {
		cmd, _ := a.Overlays.UpdateTop(msg)
		return a, cmd
	}
	if a.KeyHandler != nil {
		if consumed, keyCmd := a.KeyHandler.Handle(msg, a.Mode); consumed {
			return a, keyCmd
		}
	}
	switch {
	case a.Mode == ModeModelDetail && msg.String() == "esc":
		a.Mode = ModeDashboard
		a.Detail = nil
		return a, nil
	case a.Mode == ModeDashboard && msg.String() == "enter":
		if row, ok := a.Dashboard.SelectedRow(); ok {
			id := row.Model.ID
			return a, func() tea.Msg { return OpenModelMsg{ID: id} }
		}
		return a, nil
	}
	v, cmd := a.currentView().Update(msg)
	a.setCurrentView(v)
	return a, cmd
}

// View implements tea.Model.
func (a *appModelAdapter) View() string {
	base := a.currentView().View()
	if line := a.statusLine(); line != "" {
		base += "\n" + line
	}
	if a.KeyHandler != nil && a.KeyHandler.Waiting {
		base += "\n" + RenderKeybindHelp(a.KeyHandler, a.Mode)
	}
	return a.Overlays.Render(base, a.width, a.height)
}

func (a *AppModel) statusLine() string {
	switch {
	case a.Status == "":
		return ""
	case a.StatusIsError:
		return Styles.Error.Render(a.Status)
	case a.StatusMuted:
		return Styles.Muted.Render(a.Status)
	}
	return Styles.Status.Render(a.Status)
}

func (a *AppModel) setStatus(s string, isError bool) {
	a.Status = s
	a.StatusIsError = isError
	a.StatusMuted = false
}

func (a *AppModel) setMutedStatus(s string) {
	a.Status = s
	a.StatusIsError = false
	a.StatusMuted = true
}

// record adds a line to the activity log.
func (a *AppModel) record(key string, status progress.Status, format string, args ...interface{}) {
	a.activity.Record(progress.Event{
		Key:       key,
		Status:    status,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: a.now(),
	})
}

// currentRow is the model commands apply to: the open model in detail
// mode, the selected row on the dashboard.
func (a *AppModel) currentRow() (store.Row, bool) {
	if a.Mode == ModeModelDetail && a.Detail != nil {
		return a.Store.Row(a.Detail.ModelID)
	}
	return a.Dashboard.SelectedRow()
}

// storeChanged refreshes everything derived from the store.
func (a *AppModel) storeChanged() {
	if a.Store.Loaded() {
		a.Dashboard.Stats.Items = StatsFrom(a.Store.Stats())
	}
	if a.Detail != nil {
		a.Detail.Sync()
	}
}
