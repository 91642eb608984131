package ui

import (
	"time"

	"observatory/internal/api"
	"observatory/internal/progress"
	"observatory/internal/store"
)

// OpenModelMsg is sent when the user opens a model from the dashboard.
type OpenModelMsg struct {
	ID api.ID
}

// ModelsLoadedMsg carries the result of a model list request.
type ModelsLoadedMsg struct {
	Models []api.Model
	Err    error
}

// ArtifactsLoadedMsg carries the result of an artifact list request.
type ArtifactsLoadedMsg struct {
	ModelID   api.ID
	Artifacts []api.Artifact
	Err       error
}

// CreateModelMsg is sent when the user submits the create-model form.
type CreateModelMsg struct {
	Name string
	Task api.Task
}

// ModelCreatedMsg carries the result of a create request.
type ModelCreatedMsg struct {
	Model api.Model
	Err   error
}

// MarkNeedsTrainingMsg flags a model for retraining.
type MarkNeedsTrainingMsg struct {
	ModelID api.ID
}

// TrainMsg starts a training job.
type TrainMsg struct {
	ModelID api.ID
	Epochs  int
}

// SimulateMsg starts a simulation job.
type SimulateMsg struct {
	ModelID  api.ID
	Scenario string
}

// PromoteArtifactMsg makes an artifact the active one.
type PromoteArtifactMsg struct {
	ModelID    api.ID
	ArtifactID api.ID
}

// DeleteArtifactMsg is sent when the user confirms an artifact deletion.
type DeleteArtifactMsg struct {
	ModelID    api.ID
	ArtifactID api.ID
}

// refreshScope says what to reload after a mutation succeeds.
type refreshScope int

const (
	refreshModels refreshScope = 1 << iota
	refreshArtifacts
)

// MutationDoneMsg reports the end of an optimistic mutation.
type MutationDoneMsg struct {
	Op      string
	ModelID api.ID
	// Mutation is set when the store was changed optimistically.
	Mutation *store.Mutation
	// Model is the server's view of the model, when the endpoint returns one.
	Model   *api.Model
	Job     *api.Job
	Refresh refreshScope
	Err     error
}

// UploadArtifactMsg is sent when the user submits the upload form.
type UploadArtifactMsg struct {
	ModelID api.ID
	Path    string
	Version string
	Promote bool
}

// UploadProgressMsg carries one progress event of an in-flight upload.
type UploadProgressMsg struct {
	ModelID api.ID
	Event   progress.Event
	ch      <-chan progress.Event
}

// UploadDoneMsg carries the result of an upload.
type UploadDoneMsg struct {
	ModelID  api.ID
	Artifact api.Artifact
	Err      error
}

// ClearUploadMsg removes a finished upload from the display. Seq names the
// upload so a later upload of the same model is kept.
type ClearUploadMsg struct {
	ModelID api.ID
	Seq     uint64
}

// DownloadActiveMsg saves the active artifact of a model. Filename names the
// saved file when the backend sends none.
type DownloadActiveMsg struct {
	ModelID  api.ID
	Filename string
}

// DownloadArtifactMsg saves one artifact.
type DownloadArtifactMsg struct {
	ModelID  api.ID
	Artifact api.Artifact
}

// DownloadDoneMsg carries the result of a download.
type DownloadDoneMsg struct {
	Path string
	Err  error
}

// ShowCreateModelMsg triggers the create-model modal.
type ShowCreateModelMsg struct{}

// ShowUploadMsg triggers the upload modal for the current model.
type ShowUploadMsg struct{}

// ShowTrainMsg triggers the training prompt for the current model.
type ShowTrainMsg struct{}

// ShowSimulateMsg triggers the simulation prompt for the current model.
type ShowSimulateMsg struct{}

// ShowDeleteArtifactMsg triggers the delete confirmation for the selected artifact.
type ShowDeleteArtifactMsg struct{}

// RequestNeedsTrainingMsg flags the current model.
type RequestNeedsTrainingMsg struct{}

// RequestPromoteMsg promotes the selected artifact.
type RequestPromoteMsg struct{}

// RequestDownloadMsg downloads the active artifact (dashboard) or the
// selected artifact (model detail).
type RequestDownloadMsg struct{}

// ShowActivityMsg opens the activity log.
type ShowActivityMsg struct{}

// RefreshMsg reloads the current view from the backend.
type RefreshMsg struct{}

// DismissModalMsg is sent when user cancels a modal (Esc).
type DismissModalMsg struct{}

// tickMsg triggers periodic refresh.
type tickMsg time.Time
