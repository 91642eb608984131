package ui

import (
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"observatory/internal/api"
	"observatory/internal/progress"
	"observatory/internal/store"
)

// handleShowUpload opens the upload form for the current model.
func (a *appModelAdapter) handleShowUpload() (tea.Model, tea.Cmd) {
	row, ok := a.currentRow()
	if !ok {
		return a, nil
	}
	a.uploadModal.labeler = a.Labeler
	a.uploadModal.Target(row.Model.ID, row.Model.Name)
	a.Overlays.Push(Overlay{View: a.uploadModal, Dismiss: "esc"})
	return a, a.uploadModal.Init()
}

// handleUploadArtifact starts the upload. A model has at most one upload at
// a time. The file is opened by the upload command, so a missing file or a
// directory fails like any other upload.
func (a *appModelAdapter) handleUploadArtifact(msg UploadArtifactMsg) (tea.Model, tea.Cmd) {
	if err := a.Store.BeginUpload(msg.ModelID); err != nil {
		if errors.Is(err, store.ErrUploadInFlight) {
			a.setStatus("An upload is already in progress for this model", true)
		} else {
			a.setStatus("Upload: "+err.Error(), true)
		}
		return a, nil
	}
	popOverlay[*UploadModal](&a.Overlays)

	filename := filepath.Base(msg.Path)
	up := api.Upload{
		Path:    msg.Path,
		Version: api.ResolveVersion(msg.Version, filename, a.now(), a.Labeler),
		Promote: msg.Promote,
	}
	log.WithFields(log.Fields{
		"model":   msg.ModelID,
		"file":    filename,
		"version": up.Version,
		"promote": up.Promote,
	}).Info("upload started")
	a.setStatus("Uploading "+filename+"…", false)
	a.record(msg.ModelID.String(), progress.StatusRunning, "uploading %s to model %s", filename, msg.ModelID)

	ch := make(chan progress.Event, uploadEventBuffer)
	return a, tea.Batch(uploadCmd(a.Backend, msg.ModelID, up, ch), listenUploadCmd(msg.ModelID, ch))
}

// handleUploadProgress records a percentage and waits for the next event
// until a terminal one arrives.
func (a *appModelAdapter) handleUploadProgress(msg UploadProgressMsg) (tea.Model, tea.Cmd) {
	if msg.Event.Status.Terminal() {
		return a, nil
	}
	a.Store.SetUploadPercent(msg.ModelID, msg.Event.Percent)
	return a, listenUploadCmd(msg.ModelID, msg.ch)
}

// handleUploadDone shows 100% and schedules the clear whatever the outcome.
// Failures raise an alert that must be dismissed.
func (a *appModelAdapter) handleUploadDone(msg UploadDoneMsg) (tea.Model, tea.Cmd) {
	seq := a.Store.FinishUpload(msg.ModelID, msg.Err)
	a.uploadModal.ResetPath()
	clearCmd := clearUploadCmd(msg.ModelID, seq, a.Settings.UploadClearDelay)

	if msg.Err != nil {
		log.WithError(msg.Err).WithField("model", msg.ModelID).Error("upload failed")
		a.setStatus("Upload failed", true)
		a.record(msg.ModelID.String(), progress.StatusError, "upload failed: %v", msg.Err)
		a.Overlays.Push(Overlay{View: NewAlertModal("Upload failed", msg.Err.Error()), Dismiss: "esc"})
		return a, clearCmd
	}

	version := msg.Artifact.Version
	if version == "" {
		version = "unversioned"
	}
	log.WithFields(log.Fields{
		"model":    msg.ModelID,
		"artifact": msg.Artifact.ID,
		"version":  msg.Artifact.Version,
	}).Info("upload finished")
	a.setStatus(fmt.Sprintf("Uploaded %s as %s", msg.Artifact.Filename, version), false)
	a.record(msg.ModelID.String(), progress.StatusDone, "uploaded %s as %s", msg.Artifact.Filename, version)
	return a, tea.Batch(clearCmd, loadModelsCmd(a.Backend))
}

// selectedArtifact is the artifact under the cursor in detail mode.
func (a *AppModel) selectedArtifact() (store.Row, *api.Artifact, bool) {
	if a.Mode != ModeModelDetail || a.Detail == nil {
		return store.Row{}, nil, false
	}
	row, ok := a.Store.Row(a.Detail.ModelID)
	if !ok {
		return store.Row{}, nil, false
	}
	art := a.Detail.SelectedArtifact()
	return row, art, art != nil
}

func (a *appModelAdapter) handleRequestPromote() (tea.Model, tea.Cmd) {
	row, art, ok := a.selectedArtifact()
	if !ok {
		return a, nil
	}
	msg := PromoteArtifactMsg{ModelID: row.Model.ID, ArtifactID: art.ID}
	return a, func() tea.Msg { return msg }
}

// handlePromoteArtifact marks the artifact active optimistically.
func (a *appModelAdapter) handlePromoteArtifact(msg PromoteArtifactMsg) (tea.Model, tea.Cmd) {
	mut := a.apply(msg.ModelID, store.PromoteArtifact(msg.ArtifactID))
	a.setStatus("Promoting artifact…", false)
	return a, promoteCmd(a.Backend, msg.ModelID, msg.ArtifactID, mut)
}

// handleShowDeleteArtifact asks for confirmation. Cancelling sends nothing.
func (a *appModelAdapter) handleShowDeleteArtifact() (tea.Model, tea.Cmd) {
	row, art, ok := a.selectedArtifact()
	if !ok {
		return a, nil
	}
	a.Overlays.Push(Overlay{View: NewDeleteArtifactConfirmModal(row.Model, *art), Dismiss: "esc"})
	return a, nil
}

// handleDeleteArtifact removes the artifact optimistically and sends the
// delete request.
func (a *appModelAdapter) handleDeleteArtifact(msg DeleteArtifactMsg) (tea.Model, tea.Cmd) {
	popOverlay[*ConfirmModal](&a.Overlays)
	mut := a.apply(msg.ModelID, store.RemoveArtifact(msg.ArtifactID))
	a.setStatus("Deleting artifact…", false)
	return a, deleteArtifactCmd(a.Backend, msg.ModelID, msg.ArtifactID, mut)
}

// handleRequestDownload saves the selected artifact in detail mode and the
// active artifact on the dashboard.
func (a *appModelAdapter) handleRequestDownload() (tea.Model, tea.Cmd) {
	if row, art, ok := a.selectedArtifact(); ok {
		msg := DownloadArtifactMsg{ModelID: row.Model.ID, Artifact: *art}
		return a, func() tea.Msg { return msg }
	}
	row, ok := a.currentRow()
	if !ok {
		return a, nil
	}
	if !row.Model.HasActiveArtifact() {
		a.setStatus(noActiveArtifact+" for "+row.Model.Name, true)
		return a, nil
	}
	msg := DownloadActiveMsg{ModelID: row.Model.ID, Filename: row.Model.ActiveArtifact}
	return a, func() tea.Msg { return msg }
}

func (a *appModelAdapter) handleDownloadDone(msg DownloadDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		log.WithError(msg.Err).Error("download failed")
		a.setStatus("Download failed: "+msg.Err.Error(), true)
		a.record("", progress.StatusError, "download failed: %v", msg.Err)
		return a, nil
	}
	log.WithField("path", msg.Path).Info("artifact downloaded")
	a.setStatus("Saved "+msg.Path, false)
	a.record("", progress.StatusDone, "saved %s", msg.Path)
	return a, nil
}
