package ui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"observatory/internal/api"
	"observatory/internal/progress"
	"observatory/internal/store"
)

// handleRefresh reloads the model list; in detail mode the open model's
// artifacts are reloaded too.
func (a *appModelAdapter) handleRefresh() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{a.Dashboard.SetLoading(true), loadModelsCmd(a.Backend)}
	if a.Mode == ModeModelDetail && a.Detail != nil {
		cmds = append(cmds, loadArtifactsCmd(a.Backend, a.Detail.ModelID))
	}
	return a, tea.Batch(cmds...)
}

// handleOpenModel switches to the detail view of one model.
func (a *appModelAdapter) handleOpenModel(msg OpenModelMsg) (tea.Model, tea.Cmd) {
	if _, ok := a.Store.Row(msg.ID); !ok {
		return a, nil
	}
	a.Mode = ModeModelDetail
	a.Detail = NewModelDetailView(msg.ID, a.Store)
	a.Detail.LinkURL = a.Backend.ActiveDownloadURL
	var sizeCmd tea.Cmd
	if a.width > 0 {
		_, sizeCmd = a.Detail.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
	}
	return a, tea.Batch(a.Detail.Init(), sizeCmd, loadArtifactsCmd(a.Backend, msg.ID))
}

// handleModelsLoaded installs a fresh model list and fans out artifact
// requests. A failed list keeps the previous state.
func (a *appModelAdapter) handleModelsLoaded(msg ModelsLoadedMsg) (tea.Model, tea.Cmd) {
	a.Dashboard.SetLoading(false)
	if msg.Err != nil {
		log.WithError(msg.Err).Warn("list models failed")
		a.setMutedStatus("Could not load models: " + msg.Err.Error())
		return a, nil
	}
	a.Store.ReplaceModels(msg.Models)
	a.storeChanged()
	log.WithField("models", len(msg.Models)).Debug("models loaded")
	return a, loadAllArtifactsCmd(a.Backend, msg.Models)
}

// handleArtifactsLoaded stores one model's artifacts. Failures are logged
// and the previous list is kept.
func (a *appModelAdapter) handleArtifactsLoaded(msg ArtifactsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		log.WithError(msg.Err).WithField("model", msg.ModelID).Warn("list artifacts failed")
		a.setMutedStatus("Could not load artifacts: " + msg.Err.Error())
		return a, nil
	}
	if err := a.Store.SetArtifacts(msg.ModelID, msg.Artifacts); err != nil {
		// The model disappeared between the two requests.
		log.WithField("model", msg.ModelID).Debug("artifacts for unknown model dropped")
		return a, nil
	}
	a.storeChanged()
	return a, nil
}

// handleShowCreateModel shows the create-model modal. The modal keeps its
// input between openings until a create succeeds.
func (a *appModelAdapter) handleShowCreateModel() (tea.Model, tea.Cmd) {
	a.Overlays.Push(Overlay{View: a.createModal, Dismiss: "esc"})
	return a, a.createModal.Init()
}

// handleCreateModel sends the create request. Only one create runs at a time.
func (a *appModelAdapter) handleCreateModel(msg CreateModelMsg) (tea.Model, tea.Cmd) {
	if msg.Name == "" {
		return a, nil
	}
	if a.creating {
		a.setStatus("A model is already being created", false)
		return a, nil
	}
	a.creating = true
	a.setStatus(fmt.Sprintf("Creating %s…", msg.Name), false)
	return a, createModelCmd(a.Backend, msg.Name, msg.Task)
}

// handleModelCreated closes the modal and refreshes the list exactly once.
func (a *appModelAdapter) handleModelCreated(msg ModelCreatedMsg) (tea.Model, tea.Cmd) {
	a.creating = false
	if msg.Err != nil {
		log.WithError(msg.Err).Error("create model failed")
		a.setStatus("Create model: "+msg.Err.Error(), true)
		return a, nil
	}
	popOverlay[*CreateModelModal](&a.Overlays)
	a.createModal.Reset()
	if msg.Model.ID != "" {
		a.Store.AppendModel(msg.Model)
		a.storeChanged()
	}
	a.setStatus(fmt.Sprintf("Model %s created", msg.Model.Name), false)
	log.WithFields(log.Fields{"model": msg.Model.ID, "name": msg.Model.Name}).Info("model created")
	return a, loadModelsCmd(a.Backend)
}

func (a *appModelAdapter) handleRequestNeedsTraining() (tea.Model, tea.Cmd) {
	row, ok := a.currentRow()
	if !ok {
		return a, nil
	}
	id := row.Model.ID
	return a, func() tea.Msg { return MarkNeedsTrainingMsg{ModelID: id} }
}

// handleMarkNeedsTraining flips the status optimistically.
func (a *appModelAdapter) handleMarkNeedsTraining(msg MarkNeedsTrainingMsg) (tea.Model, tea.Cmd) {
	mut := a.apply(msg.ModelID, store.SetStatus(api.StatusNeedsTraining))
	a.setStatus("Marking model as needing training…", false)
	return a, markNeedsTrainingCmd(a.Backend, msg.ModelID, mut)
}

// handleShowTrain prompts for the epoch count.
func (a *appModelAdapter) handleShowTrain() (tea.Model, tea.Cmd) {
	row, ok := a.currentRow()
	if !ok {
		return a, nil
	}
	id := row.Model.ID
	modal := NewPromptModal("Train "+row.Model.Name, "Epochs", strconv.Itoa(a.Settings.Epochs), func(v string) tea.Msg {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil
		}
		return TrainMsg{ModelID: id, Epochs: n}
	})
	a.Overlays.Push(Overlay{View: modal, Dismiss: "esc"})
	return a, modal.Init()
}

// handleTrain starts training and shows the model as training right away.
func (a *appModelAdapter) handleTrain(msg TrainMsg) (tea.Model, tea.Cmd) {
	popOverlay[*PromptModal](&a.Overlays)
	epochs := msg.Epochs
	if epochs <= 0 {
		epochs = api.DefaultEpochs
	}
	mut := a.apply(msg.ModelID, store.SetStatus(api.StatusTraining))
	a.setStatus(fmt.Sprintf("Starting training (%d epochs)…", epochs), false)
	return a, trainCmd(a.Backend, msg.ModelID, epochs, mut)
}

// handleShowSimulate prompts for the scenario.
func (a *appModelAdapter) handleShowSimulate() (tea.Model, tea.Cmd) {
	row, ok := a.currentRow()
	if !ok {
		return a, nil
	}
	id := row.Model.ID
	modal := NewPromptModal("Simulate "+row.Model.Name, "Scenario", a.Settings.Scenario, func(v string) tea.Msg {
		if v == "" {
			return nil
		}
		return SimulateMsg{ModelID: id, Scenario: v}
	})
	a.Overlays.Push(Overlay{View: modal, Dismiss: "esc"})
	return a, modal.Init()
}

// handleSimulate starts a simulation. Nothing is applied to the store.
func (a *appModelAdapter) handleSimulate(msg SimulateMsg) (tea.Model, tea.Cmd) {
	popOverlay[*PromptModal](&a.Overlays)
	scenario := msg.Scenario
	if scenario == "" {
		scenario = api.DefaultScenario
	}
	a.setStatus(fmt.Sprintf("Starting simulation %q…", scenario), false)
	return a, simulateCmd(a.Backend, msg.ModelID, scenario)
}

// apply changes the store optimistically. A nil result means the model is
// unknown and there is nothing to roll back.
func (a *AppModel) apply(id api.ID, change store.Change) *store.Mutation {
	mut, err := a.Store.Apply(id, change)
	if err != nil {
		return nil
	}
	a.storeChanged()
	return &mut
}

// handleMutationDone reconciles an optimistic change. Failures roll the
// row back; successes refresh what the operation touched.
func (a *appModelAdapter) handleMutationDone(msg MutationDoneMsg) (tea.Model, tea.Cmd) {
	entry := log.WithFields(log.Fields{"op": msg.Op, "model": msg.ModelID})
	if msg.Err != nil {
		if msg.Mutation != nil {
			a.Store.Rollback(*msg.Mutation)
			a.storeChanged()
		}
		entry.WithError(msg.Err).Error("mutation failed")
		a.record(msg.ModelID.String(), progress.StatusError, "%s: %v", msg.Op, msg.Err)
		a.setStatus(fmt.Sprintf("%s failed: %v", capitalize(msg.Op), msg.Err), true)
		return a, nil
	}

	if msg.Model != nil {
		_ = a.Store.ReconcileModel(*msg.Model)
		a.storeChanged()
	}
	status := capitalize(msg.Op) + " succeeded"
	if msg.Job != nil && msg.Job.ID != "" {
		status += " (job " + msg.Job.ID.String() + ")"
	}
	a.setStatus(status, false)
	entry.Info("mutation succeeded")
	a.record(msg.ModelID.String(), progress.StatusDone, "%s on model %s", msg.Op, msg.ModelID)

	var cmds []tea.Cmd
	if msg.Refresh&refreshModels != 0 {
		cmds = append(cmds, loadModelsCmd(a.Backend))
	}
	if msg.Refresh&refreshArtifacts != 0 && msg.Refresh&refreshModels == 0 {
		cmds = append(cmds, loadArtifactsCmd(a.Backend, msg.ModelID))
	}
	return a, tea.Batch(cmds...)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
