package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNewClient_ValidatesBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		wantErr bool
		want    string
	}{
		{name: "default", base: "", want: DefaultBaseURL},
		{name: "trailing slash trimmed", base: "http://backend:8000/", want: "http://backend:8000"},
		{name: "https", base: "https://models.example.com", want: "https://models.example.com"},
		{name: "bad scheme", base: "ftp://backend", wantErr: true},
		{name: "no host", base: "http://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(Options{BaseURL: tt.base})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.BaseURL())
		})
	}
}

func TestClient_DownloadURLs(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "http://backend:8000"})
	require.NoError(t, err)

	assert.Equal(t, "http://backend:8000/api/models/m%201/artifacts/active/download", c.ActiveDownloadURL("m 1"))
	assert.Equal(t, "http://backend:8000/api/models/7/artifacts/a9/download", c.ArtifactDownloadURL("7", "a9"))
}

func TestListModels(t *testing.T) {
	var gotPath, gotMethod, gotRequestID string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		gotRequestID = r.Header.Get(RequestIDHeader)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"id": 1, "name": "gpt-demo", "task": "generation", "status": "ready", "active_artifact": "policy.zip", "active_version": "v250101120000"},
			{"id": "m-2", "name": "ranker", "task": "classification", "status": "needs-training"}
		]`)
	}))

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "/api/models", gotPath)
	assert.NotEmpty(t, gotRequestID, "every request carries a request id")

	require.Len(t, models, 2)
	assert.Equal(t, Model{
		ID: "1", Name: "gpt-demo", Task: TaskGeneration, Status: StatusReady,
		ActiveArtifact: "policy.zip", ActiveVersion: "v250101120000",
	}, models[0])
	assert.Equal(t, ID("m-2"), models[1].ID)
	assert.False(t, models[1].HasActiveArtifact())
}

func TestCreateModel_SendsNameAndTask(t *testing.T) {
	var got CreateModelRequest
	var contentType string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/models", r.URL.Path)
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"m-9","name":"gpt-demo","task":"generation","status":"needs-training"}`)
	}))

	m, err := c.CreateModel(context.Background(), "  gpt-demo ", TaskGeneration)
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, CreateModelRequest{Name: "gpt-demo", Task: TaskGeneration}, got)
	assert.Equal(t, ID("m-9"), m.ID)
}

func TestCreateModel_RejectsEmptyName(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	_, err := c.CreateModel(context.Background(), "   ", TaskOther)
	assert.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestMutations_AcceptEmptyBodies(t *testing.T) {
	type call struct{ method, path, body string }
	var (
		mu    sync.Mutex
		calls []call
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, call{r.Method, r.URL.Path, string(b)})
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	ctx := context.Background()

	_, err := c.MarkNeedsTraining(ctx, "m1")
	require.NoError(t, err)
	_, err = c.StartTraining(ctx, "m1", 0)
	require.NoError(t, err)
	_, err = c.StartTraining(ctx, "m1", 10)
	require.NoError(t, err)
	_, err = c.StartSimulation(ctx, "m1", "")
	require.NoError(t, err)
	_, err = c.StartSimulation(ctx, "m1", "stress")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []call{
		{http.MethodPost, "/api/models/m1/needs-training", ""},
		{http.MethodPost, "/api/models/m1/train", `{"epochs":3}`},
		{http.MethodPost, "/api/models/m1/train", `{"epochs":10}`},
		{http.MethodPost, "/api/models/m1/simulate", `{"scenario":"smoke"}`},
		{http.MethodPost, "/api/models/m1/simulate", `{"scenario":"stress"}`},
	}, calls)
}

func TestServerErrors_CarryServerMessage(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantRange   StatusCodeRange
	}{
		{name: "detail string", status: http.StatusNotFound, body: `{"detail":"Model not found"}`, wantMessage: "Model not found", wantRange: Status4xx},
		{name: "message field", status: http.StatusConflict, body: `{"message":"name taken"}`, wantMessage: "name taken", wantRange: Status4xx},
		{name: "error field", status: http.StatusInternalServerError, body: `{"error":"db down"}`, wantMessage: "db down", wantRange: Status5xx},
		{name: "detail list", status: http.StatusUnprocessableEntity, body: `{"detail":[{"loc":["body","name"],"msg":"field required"}]}`, wantMessage: `[{"loc":["body","name"],"msg":"field required"}]`, wantRange: Status4xx},
		{name: "plain text", status: http.StatusBadGateway, body: "upstream timed out\n", wantMessage: "upstream timed out", wantRange: Status5xx},
		{name: "empty body", status: http.StatusBadRequest, body: "", wantMessage: "", wantRange: Status4xx},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))

			_, err := c.ListModels(context.Background())
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantRange, apiErr.Range)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.status, StatusOf(err))
			if tt.wantMessage == "" {
				assert.Equal(t, apiErr.Summary, err.Error())
			} else {
				assert.Equal(t, tt.wantMessage, err.Error())
			}
			assert.False(t, errors.Is(err, ErrNetwork))
		})
	}
}

func TestTransportFailure_IsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(Options{BaseURL: base})
	require.NoError(t, err)

	_, err = c.ListModels(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, "network error during list models", err.Error())
	assert.Zero(t, StatusOf(err))
}

func TestTimeoutAppliesToJSONRequests(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.ListModels(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestIDDecodesStringsAndNumbers(t *testing.T) {
	var a Artifact
	require.NoError(t, json.Unmarshal([]byte(`{"id": 12, "model_id": "m-1", "size": 2048, "is_archive": true}`), &a))
	assert.Equal(t, ID("12"), a.ID)
	assert.Equal(t, ID("m-1"), a.ModelID)
	assert.Equal(t, int64(2048), a.Size)
	assert.True(t, a.IsArchive)
}

func TestParseTask(t *testing.T) {
	for _, in := range []string{"generation", "Generation", " RL ", "rl", "Other"} {
		_, err := ParseTask(in)
		assert.NoError(t, err, in)
	}
	task, err := ParseTask("Classification")
	require.NoError(t, err)
	assert.Equal(t, TaskClassification, task)

	_, err = ParseTask("vision")
	assert.Error(t, err)
}

func TestStatusKnown(t *testing.T) {
	for _, s := range []Status{StatusReady, StatusTraining, StatusNeedsTraining, StatusStale} {
		assert.True(t, s.Known(), s)
	}
	assert.False(t, Status("archived").Known())
}
