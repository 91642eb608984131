package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("w"), size), 0o644))
	return path
}

type receivedUpload struct {
	filename string
	content  []byte
	version  string
	hasVer   bool
	promote  string
}

func uploadHandler(t *testing.T, got *receivedUpload, respond func(w http.ResponseWriter)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/models/m1/artifacts", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		got.filename = hdr.Filename
		got.content, _ = io.ReadAll(f)
		_, got.hasVer = r.MultipartForm.Value["version"]
		got.version = r.FormValue("version")
		got.promote = r.FormValue("promote")
		respond(w)
	})
}

func TestUploadArtifact_SendsMultipartAndReportsProgress(t *testing.T) {
	path := writeTempFile(t, "policy.zip", 256*1024)
	var got receivedUpload
	c := newTestClient(t, uploadHandler(t, &got, func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"a1","model_id":"m1","version":"v260101000000","filename":"policy.zip","size":262144,"is_archive":true}`)
	}))

	var mu sync.Mutex
	var percents []int
	art, err := c.UploadArtifact(context.Background(), "m1", Upload{
		Path:    path,
		Version: "v260101000000",
		Promote: true,
		OnProgress: func(p int) {
			mu.Lock()
			percents = append(percents, p)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "policy.zip", got.filename)
	assert.Len(t, got.content, 256*1024)
	assert.True(t, got.hasVer)
	assert.Equal(t, "v260101000000", got.version)
	assert.Equal(t, "true", got.promote)

	assert.Equal(t, Artifact{ID: "a1", ModelID: "m1", Version: "v260101000000", Filename: "policy.zip", Size: 262144, IsArchive: true}, art)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, percents)
	assert.Equal(t, 100, percents[len(percents)-1])
	for i := 1; i < len(percents); i++ {
		assert.Greater(t, percents[i], percents[i-1])
	}
}

func TestUploadArtifact_OmitsEmptyVersion(t *testing.T) {
	path := writeTempFile(t, "weights.pt", 10)
	var got receivedUpload
	c := newTestClient(t, uploadHandler(t, &got, func(w http.ResponseWriter) {
		io.WriteString(w, `{"id":"a2","filename":"weights.pt"}`)
	}))

	_, err := c.UploadArtifact(context.Background(), "m1", Upload{Path: path})
	require.NoError(t, err)
	assert.False(t, got.hasVer, "no version field should be sent")
	assert.Equal(t, "false", got.promote)
}

func TestUploadArtifact_ServerMessageOnRejection(t *testing.T) {
	path := writeTempFile(t, "weights.pt", 10)
	var got receivedUpload
	c := newTestClient(t, uploadHandler(t, &got, func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"Unsupported file type"}`)
	}))

	_, err := c.UploadArtifact(context.Background(), "m1", Upload{Path: path})
	require.Error(t, err)
	assert.Equal(t, "Unsupported file type", err.Error())
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestUploadArtifact_NetworkFailure(t *testing.T) {
	path := writeTempFile(t, "weights.pt", 10)
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()
	c, err := NewClient(Options{BaseURL: base})
	require.NoError(t, err)

	_, err = c.UploadArtifact(context.Background(), "m1", Upload{Path: path})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, "network error during upload", err.Error())
}

func TestUploadArtifact_MissingFile(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = c.UploadArtifact(context.Background(), "m1", Upload{Path: filepath.Join(t.TempDir(), "nope.pt")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.False(t, errors.Is(err, ErrNetwork))
}

func TestPromoteAndDeleteArtifact(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.Method == http.MethodPost {
			io.WriteString(w, `{"id":"a1","model_id":"m1","filename":"policy.zip"}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	art, err := c.PromoteArtifact(context.Background(), "m1", "a1")
	require.NoError(t, err)
	assert.Equal(t, "policy.zip", art.Filename)
	require.NoError(t, c.DeleteArtifact(context.Background(), "m1", "a1"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"POST /api/models/m1/artifacts/a1/promote",
		"DELETE /api/models/m1/artifacts/a1",
	}, seen)
}

func TestListArtifacts(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/models/m1/artifacts", r.URL.Path)
		io.WriteString(w, `[{"id":"a1","model_id":"m1","version":"v1","filename":"w.pt","size":10,"is_archive":false}]`)
	}))

	arts, err := c.ListArtifacts(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, arts, 1)
	assert.Equal(t, "w.pt", arts[0].Filename)
}

func TestDownloadActiveArtifact_UsesContentDisposition(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/models/m1/artifacts/active/download", r.URL.Path)
		w.Header().Set("Content-Disposition", `attachment; filename="../../policy.zip"`)
		io.WriteString(w, "PK\x03\x04payload")
	}))
	dir := t.TempDir()

	path, err := c.DownloadActiveArtifact(context.Background(), "m1", "weights.pt", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "policy.zip"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04payload", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no partial files are left behind")
}

func TestDownloadActiveArtifact_FallsBackToActiveName(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "weights")
	}))
	dir := t.TempDir()

	path, err := c.DownloadActiveArtifact(context.Background(), "m1", "weights.pt", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "weights.pt"), path)

	path, err = c.DownloadActiveArtifact(context.Background(), "m1", "", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "m1-active.bin"), path)
}

func TestDownloadArtifact_FallsBackToGivenName(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/models/m1/artifacts/a7/download", r.URL.Path)
		io.WriteString(w, "weights")
	}))
	dir := t.TempDir()

	path, err := c.DownloadArtifact(context.Background(), "m1", "a7", "weights.pt", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "weights.pt"), path)
}

func TestDownloadArtifact_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"No active artifact"}`)
	}))
	dir := t.TempDir()

	_, err := c.DownloadActiveArtifact(context.Background(), "m1", "", dir)
	require.Error(t, err)
	assert.Equal(t, "No active artifact", err.Error())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "a.zip", safeFilename("a.zip"))
	assert.Equal(t, "passwd", safeFilename("../../etc/passwd"))
	assert.Equal(t, "x.pt", safeFilename(`C:\tmp\x.pt`))
	assert.Equal(t, "", safeFilename(".."))
	assert.Equal(t, "", safeFilename("  "))
}
