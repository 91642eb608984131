package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"observatory/internal/api"
)

func sampleModels() []api.Model {
	return []api.Model{
		{ID: "1", Name: "gpt-demo", Task: api.TaskGeneration, Status: api.StatusReady, ActiveArtifact: "policy.zip", ActiveVersion: "v1"},
		{ID: "2", Name: "clf", Task: api.TaskClassification, Status: api.StatusNeedsTraining},
		{ID: "3", Name: "emb", Task: api.TaskEmbedding, Status: api.StatusTraining},
	}
}

func TestReplaceModels_KeepsServerOrder(t *testing.T) {
	s := New()
	assert.False(t, s.Loaded())

	s.ReplaceModels(sampleModels())

	assert.True(t, s.Loaded())
	rows := s.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"gpt-demo", "clf", "emb"}, []string{rows[0].Model.Name, rows[1].Model.Name, rows[2].Model.Name})

	r, ok := s.Row("2")
	require.True(t, ok)
	assert.Equal(t, "clf", r.Model.Name)

	r, ok = s.At(2)
	require.True(t, ok)
	assert.Equal(t, api.ID("3"), r.Model.ID)

	_, ok = s.At(3)
	assert.False(t, ok)
}

func TestReplaceModels_PreservesArtifactsAndUploads(t *testing.T) {
	s := New()
	s.ReplaceModels(sampleModels())
	require.NoError(t, s.SetArtifacts("1", []api.Artifact{{ID: "a1", Filename: "policy.zip"}}))
	require.NoError(t, s.BeginUpload("1"))
	s.SetUploadPercent("1", 40)

	refreshed := sampleModels()
	refreshed[0].Status = api.StatusStale
	s.ReplaceModels([]api.Model{refreshed[0], refreshed[2]})

	r, ok := s.Row("1")
	require.True(t, ok)
	assert.Equal(t, api.StatusStale, r.Model.Status)
	assert.True(t, r.ArtifactsLoaded)
	require.Len(t, r.Artifacts, 1)
	require.NotNil(t, r.Upload)
	assert.Equal(t, 40, r.Upload.Percent)

	_, ok = s.Row("2")
	assert.False(t, ok, "models missing from the refresh are dropped")
	assert.Equal(t, 2, s.Len())
}

func TestReplaceModels_SkipsDuplicateIDs(t *testing.T) {
	s := New()
	s.ReplaceModels([]api.Model{{ID: "1", Name: "first"}, {ID: "1", Name: "second"}})

	require.Equal(t, 1, s.Len())
	r, _ := s.Row("1")
	assert.Equal(t, "first", r.Model.Name)
}

func TestRows_ReturnsCopies(t *testing.T) {
	s := New()
	s.ReplaceModels(sampleModels())
	require.NoError(t, s.SetArtifacts("1", []api.Artifact{{ID: "a1", Filename: "policy.zip"}}))

	r, _ := s.Row("1")
	r.Artifacts[0].Filename = "mutated"
	r.Model.Name = "mutated"

	again, _ := s.Row("1")
	assert.Equal(t, "policy.zip", again.Artifacts[0].Filename)
	assert.Equal(t, "gpt-demo", again.Model.Name)
}

func TestSetArtifacts_UnknownModel(t *testing.T) {
	s := New()
	err := s.SetArtifacts("nope", nil)
	assert.True(t, errors.Is(err, ErrUnknownModel))
}

func TestAppendModel(t *testing.T) {
	s := New()
	s.ReplaceModels(sampleModels())

	s.AppendModel(api.Model{ID: "4", Name: "new"})
	s.AppendModel(api.Model{ID: "4", Name: "renamed"})

	require.Equal(t, 4, s.Len())
	r, _ := s.At(3)
	assert.Equal(t, "renamed", r.Model.Name)
}

func TestUpload_Lifecycle(t *testing.T) {
	s := New()
	s.ReplaceModels(sampleModels())

	require.NoError(t, s.BeginUpload("1"))
	assert.True(t, errors.Is(s.BeginUpload("1"), ErrUploadInFlight))
	require.NoError(t, s.BeginUpload("2"), "uploads to other models are independent")

	s.SetUploadPercent("1", 30)
	s.SetUploadPercent("1", 20)
	s.SetUploadPercent("1", 250)
	r, _ := s.Row("1")
	assert.Equal(t, 100, r.Upload.Percent, "percent is clamped and never moves backwards")

	s.FinishUpload("2", errors.New("boom"))
	r, _ = s.Row("2")
	assert.True(t, r.Uploading())
	assert.True(t, r.Upload.Done)
	assert.Equal(t, 100, r.Upload.Percent)
	assert.EqualError(t, r.Upload.Err, "boom")
	seq := r.Upload.Seq

	s.ClearUpload("2", seq)
	r, _ = s.Row("2")
	assert.False(t, r.Uploading())
	require.NoError(t, s.BeginUpload("2"))
	s.ClearUpload("2", seq+100)
	r, _ = s.Row("2")
	assert.True(t, r.Uploading(), "running uploads are not cleared")

	assert.True(t, errors.Is(s.BeginUpload("missing"), ErrUnknownModel))
}

func TestUpload_FinishedUploadDoesNotBlockNext(t *testing.T) {
	s := New()
	s.ReplaceModels(sampleModels())

	require.NoError(t, s.BeginUpload("1"))
	first := s.FinishUpload("1", nil)
	require.NotZero(t, first)

	require.NoError(t, s.BeginUpload("1"), "a finished upload awaiting its clear is replaced")
	r, _ := s.Row("1")
	require.NotNil(t, r.Upload)
	assert.False(t, r.Upload.Done)
	assert.Equal(t, 0, r.Upload.Percent)
	assert.Greater(t, r.Upload.Seq, first)
	assert.True(t, errors.Is(s.BeginUpload("1"), ErrUploadInFlight))

	s.ClearUpload("1", first)
	r, _ = s.Row("1")
	assert.True(t, r.Uploading(), "the earlier clear leaves the new upload alone")

	second := s.FinishUpload("1", nil)
	s.ClearUpload("1", first)
	r, _ = s.Row("1")
	assert.True(t, r.Uploading())
	s.ClearUpload("1", second)
	r, _ = s.Row("1")
	assert.False(t, r.Uploading())

	assert.Zero(t, s.FinishUpload("2", nil), "no upload to finish")
}

func TestApply_RollbackRestoresRow(t *testing.T) {
	s := New()
	s.ReplaceModels(sampleModels())

	mut, err := s.Apply("1", SetStatus(api.StatusTraining))
	require.NoError(t, err)
	r, _ := s.Row("1")
	assert.Equal(t, api.StatusTraining, r.Model.Status)

	assert.True(t, s.Rollback(mut))
	r, _ = s.Row("1")
	assert.Equal(t, api.StatusReady, r.Model.Status)
}

func TestRollback_KeepsNewerState(t *testing.T) {
	s := New()
	s.ReplaceModels(sampleModels())

	mut, err := s.Apply("2", SetStatus(api.StatusTraining))
	require.NoError(t, err)

	require.NoError(t, s.ReconcileModel(api.Model{ID: "2", Name: "clf", Status: api.StatusReady}))

	assert.False(t, s.Rollback(mut))
	r, _ := s.Row("2")
	assert.Equal(t, api.StatusReady, r.Model.Status)
}

func TestApply_UnknownModel(t *testing.T) {
	s := New()
	_, err := s.Apply("x", SetStatus(api.StatusReady))
	assert.True(t, errors.Is(err, ErrUnknownModel))
	assert.False(t, s.Rollback(Mutation{ID: "x"}))
}

func TestPromoteAndRemoveArtifact(t *testing.T) {
	s := New()
	s.ReplaceModels(sampleModels())
	require.NoError(t, s.SetArtifacts("2", []api.Artifact{
		{ID: "a1", Filename: "weights.pt", Version: "v1"},
		{ID: "a2", Filename: "policy.zip", Version: "v2"},
	}))

	promote, err := s.Apply("2", PromoteArtifact("a2"))
	require.NoError(t, err)
	r, _ := s.Row("2")
	assert.Equal(t, "policy.zip", r.Model.ActiveArtifact)
	assert.Equal(t, "v2", r.Model.ActiveVersion)

	remove, err := s.Apply("2", RemoveArtifact("a1"))
	require.NoError(t, err)
	r, _ = s.Row("2")
	require.Len(t, r.Artifacts, 1)
	assert.Equal(t, api.ID("a2"), r.Artifacts[0].ID)

	assert.False(t, s.Rollback(promote), "superseded by the removal")
	assert.True(t, s.Rollback(remove))
	r, _ = s.Row("2")
	assert.Len(t, r.Artifacts, 2)
	assert.Equal(t, "policy.zip", r.Model.ActiveArtifact)
}

func TestStats(t *testing.T) {
	s := New()
	s.ReplaceModels(append(sampleModels(), api.Model{ID: "4", Status: api.StatusStale}, api.Model{ID: "5", Status: "archived"}))

	assert.Equal(t, Stats{Models: 5, Ready: 1, Training: 1, NeedsTraining: 1, Stale: 1, WithActive: 1}, s.Stats())
}

func TestOnChange_CalledOutsideLock(t *testing.T) {
	s := New()
	calls := 0
	s.SetOnChange(func() {
		calls++
		_ = s.Len()
	})

	s.ReplaceModels(sampleModels())
	_ = s.SetArtifacts("1", nil)
	_ = s.BeginUpload("1")
	s.SetUploadPercent("1", 10)
	s.SetUploadPercent("1", 5)
	assert.Equal(t, 4, calls)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	s.ReplaceModels(sampleModels())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Rows()
				_ = s.Stats()
			}
		}()
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				mut, err := s.Apply("1", SetStatus(api.StatusTraining))
				if err == nil {
					s.Rollback(mut)
				}
				s.SetUploadPercent("1", j)
			}
		}(i)
	}
	wg.Wait()
}
