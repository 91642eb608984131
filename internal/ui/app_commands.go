package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"observatory/internal/api"
	"observatory/internal/progress"
	"observatory/internal/store"
)

// Backend is the subset of the REST client the dashboard calls.
type Backend interface {
	ListModels(ctx context.Context) ([]api.Model, error)
	CreateModel(ctx context.Context, name string, task api.Task) (api.Model, error)
	MarkNeedsTraining(ctx context.Context, id api.ID) (api.Model, error)
	StartTraining(ctx context.Context, id api.ID, epochs int) (api.Job, error)
	StartSimulation(ctx context.Context, id api.ID, scenario string) (api.Job, error)
	ListArtifacts(ctx context.Context, modelID api.ID) ([]api.Artifact, error)
	UploadArtifact(ctx context.Context, modelID api.ID, up api.Upload) (api.Artifact, error)
	PromoteArtifact(ctx context.Context, modelID, artifactID api.ID) (api.Artifact, error)
	DeleteArtifact(ctx context.Context, modelID, artifactID api.ID) error
	DownloadActiveArtifact(ctx context.Context, modelID api.ID, fallbackName, dir string) (string, error)
	DownloadArtifact(ctx context.Context, modelID, artifactID api.ID, fallbackName, dir string) (string, error)
	ActiveDownloadURL(modelID api.ID) string
}

var _ Backend = (*api.Client)(nil)

// uploadEventBuffer bounds how many progress events queue up between the
// upload goroutine and the update loop.
const uploadEventBuffer = 16

// loadModelsCmd fetches the model list.
func loadModelsCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		models, err := b.ListModels(context.Background())
		return ModelsLoadedMsg{Models: models, Err: err}
	}
}

// loadArtifactsCmd fetches the artifacts of one model.
func loadArtifactsCmd(b Backend, id api.ID) tea.Cmd {
	return func() tea.Msg {
		arts, err := b.ListArtifacts(context.Background(), id)
		return ArtifactsLoadedMsg{ModelID: id, Artifacts: arts, Err: err}
	}
}

// loadAllArtifactsCmd fetches artifacts for every model concurrently; each
// result arrives as its own ArtifactsLoadedMsg.
func loadAllArtifactsCmd(b Backend, models []api.Model) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(models))
	for _, m := range models {
		cmds = append(cmds, loadArtifactsCmd(b, m.ID))
	}
	return tea.Batch(cmds...)
}

func createModelCmd(b Backend, name string, task api.Task) tea.Cmd {
	return func() tea.Msg {
		m, err := b.CreateModel(context.Background(), name, task)
		return ModelCreatedMsg{Model: m, Err: err}
	}
}

func markNeedsTrainingCmd(b Backend, id api.ID, mut *store.Mutation) tea.Cmd {
	return func() tea.Msg {
		m, err := b.MarkNeedsTraining(context.Background(), id)
		done := MutationDoneMsg{Op: "mark needs training", ModelID: id, Mutation: mut, Refresh: refreshModels, Err: err}
		if err == nil && m.ID != "" {
			done.Model = &m
		}
		return done
	}
}

func trainCmd(b Backend, id api.ID, epochs int, mut *store.Mutation) tea.Cmd {
	return func() tea.Msg {
		job, err := b.StartTraining(context.Background(), id, epochs)
		return MutationDoneMsg{Op: "start training", ModelID: id, Mutation: mut, Job: &job, Refresh: refreshModels, Err: err}
	}
}

// simulateCmd does not refresh anything on success; a simulation does not
// change the model.
func simulateCmd(b Backend, id api.ID, scenario string) tea.Cmd {
	return func() tea.Msg {
		job, err := b.StartSimulation(context.Background(), id, scenario)
		return MutationDoneMsg{Op: "start simulation", ModelID: id, Job: &job, Err: err}
	}
}

func promoteCmd(b Backend, id, artifactID api.ID, mut *store.Mutation) tea.Cmd {
	return func() tea.Msg {
		_, err := b.PromoteArtifact(context.Background(), id, artifactID)
		return MutationDoneMsg{Op: "promote artifact", ModelID: id, Mutation: mut, Refresh: refreshModels | refreshArtifacts, Err: err}
	}
}

func deleteArtifactCmd(b Backend, id, artifactID api.ID, mut *store.Mutation) tea.Cmd {
	return func() tea.Msg {
		err := b.DeleteArtifact(context.Background(), id, artifactID)
		return MutationDoneMsg{Op: "delete artifact", ModelID: id, Mutation: mut, Refresh: refreshArtifacts, Err: err}
	}
}

// uploadCmd streams the file and reports percentages on ch. The final
// event is terminal, so listenUploadCmd stops re-arming after it.
func uploadCmd(b Backend, id api.ID, up api.Upload, ch chan progress.Event) tea.Cmd {
	emitter := &progress.ChanEmitter{Ch: ch}
	return func() tea.Msg {
		up.OnProgress = func(pct int) {
			emitter.Emit(progress.Event{Key: id.String(), Percent: pct, Status: progress.StatusRunning})
		}
		art, err := b.UploadArtifact(context.Background(), id, up)
		final := progress.Event{Key: id.String(), Percent: 100, Status: progress.StatusDone}
		if err != nil {
			final.Status = progress.StatusError
			final.Message = err.Error()
		}
		emitter.Emit(final)
		return UploadDoneMsg{ModelID: id, Artifact: art, Err: err}
	}
}

// listenUploadCmd waits for the next progress event of one upload.
func listenUploadCmd(id api.ID, ch <-chan progress.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return UploadProgressMsg{ModelID: id, Event: ev, ch: ch}
	}
}

// clearUploadCmd removes the finished upload after delay.
func clearUploadCmd(id api.ID, seq uint64, delay time.Duration) tea.Cmd {
	msg := ClearUploadMsg{ModelID: id, Seq: seq}
	if delay <= 0 {
		return func() tea.Msg { return msg }
	}
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return msg
	})
}

func downloadActiveCmd(b Backend, id api.ID, name, dir string) tea.Cmd {
	return func() tea.Msg {
		path, err := b.DownloadActiveArtifact(context.Background(), id, name, dir)
		return DownloadDoneMsg{Path: path, Err: err}
	}
}

func downloadArtifactCmd(b Backend, id api.ID, art api.Artifact, dir string) tea.Cmd {
	return func() tea.Msg {
		path, err := b.DownloadArtifact(context.Background(), id, art.ID, art.Filename, dir)
		return DownloadDoneMsg{Path: path, Err: err}
	}
}

// tickCmd schedules the next periodic refresh. A zero interval disables it.
func tickCmd(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
