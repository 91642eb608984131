package fakebackend

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"observatory/internal/api"
)

// activeArtifactID is the path segment that selects a model's active
// artifact for download.
const activeArtifactID = "active"

const maxUploadBytes = 64 << 20

func (b *Backend) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, b.Models())
}

func (b *Backend) CreateModel(c *gin.Context) {
	var req api.CreateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "name is required"})
		return
	}
	if req.Task == "" {
		req.Task = api.TaskGeneration
	}

	b.mu.Lock()
	m := b.insertModel(api.Model{Name: req.Name, Task: req.Task, Status: api.StatusNeedsTraining})
	out := *m
	b.mu.Unlock()

	log.WithFields(log.Fields{"model_id": out.ID, "name": out.Name}).Info("model created")
	c.JSON(http.StatusCreated, out)
}

func (b *Backend) MarkNeedsTraining(c *gin.Context) {
	m, ok := b.setStatus(api.ID(c.Param("id")), api.StatusNeedsTraining)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "model not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (b *Backend) StartTraining(c *gin.Context) {
	req := api.TrainRequest{Epochs: api.DefaultEpochs}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
	}
	if req.Epochs <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "epochs must be positive"})
		return
	}
	id := api.ID(c.Param("id"))
	if _, ok := b.setStatus(id, api.StatusTraining); !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "model not found"})
		return
	}
	c.JSON(http.StatusAccepted, b.startJob(id, "train"))
}

func (b *Backend) StartSimulation(c *gin.Context) {
	req := api.SimulateRequest{Scenario: api.DefaultScenario}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
	}
	id := api.ID(c.Param("id"))
	if _, ok := b.Model(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "model not found"})
		return
	}
	c.JSON(http.StatusAccepted, b.startJob(id, "simulate:"+req.Scenario))
}

func (b *Backend) setStatus(id api.ID, status api.Status) (api.Model, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.byID[id]
	if !ok {
		return api.Model{}, false
	}
	m.Status = status
	return *m, true
}

func (b *Backend) startJob(id api.ID, kind string) api.Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	job := api.Job{
		ID:      api.ID(fmt.Sprintf("job-%d", len(b.jobs)+1)),
		ModelID: id,
		Kind:    kind,
		Status:  "queued",
	}
	b.jobs = append(b.jobs, job)
	return job
}

func (b *Backend) ListArtifacts(c *gin.Context) {
	id := api.ID(c.Param("id"))
	if _, ok := b.Model(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "model not found"})
		return
	}
	arts := b.Artifacts(id)
	if arts == nil {
		arts = []api.Artifact{}
	}
	c.JSON(http.StatusOK, arts)
}

func (b *Backend) UploadArtifact(c *gin.Context) {
	id := api.ID(c.Param("id"))
	if _, ok := b.Model(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "model not found"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}
	if fh.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "file too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	promote := strings.EqualFold(c.PostForm("promote"), "true")
	b.mu.Lock()
	art := b.addArtifact(id, fh.Filename, strings.TrimSpace(c.PostForm("version")), data, promote)
	b.mu.Unlock()

	log.WithFields(log.Fields{
		"model_id":    id,
		"artifact_id": art.ID,
		"version":     art.Version,
		"size":        art.Size,
		"promote":     promote,
	}).Info("artifact uploaded")
	c.JSON(http.StatusCreated, art)
}

// addArtifact stores data under a new artifact. An empty version becomes
// v<n>. Callers hold b.mu, except during seeding.
func (b *Backend) addArtifact(id api.ID, filename, version string, data []byte, promote bool) api.Artifact {
	if version == "" {
		version = fmt.Sprintf("v%d", len(b.artifacts[id])+1)
	}
	art := api.Artifact{
		ID:        b.newID(),
		ModelID:   id,
		Version:   version,
		Filename:  filename,
		Size:      int64(len(data)),
		IsArchive: IsArchive(data),
	}
	b.artifacts[id] = append(b.artifacts[id], art)
	b.blobs[art.ID] = data
	if promote {
		if m, ok := b.byID[id]; ok {
			m.ActiveArtifact = art.Filename
			m.ActiveVersion = art.Version
		}
	}
	return art
}

func (b *Backend) findArtifact(id, aid api.ID) (api.Artifact, int, bool) {
	for i, a := range b.artifacts[id] {
		if a.ID == aid {
			return a, i, true
		}
	}
	return api.Artifact{}, -1, false
}

func (b *Backend) PromoteArtifact(c *gin.Context) {
	id, aid := api.ID(c.Param("id")), api.ID(c.Param("aid"))
	b.mu.Lock()
	m, ok := b.byID[id]
	art, _, found := b.findArtifact(id, aid)
	if ok && found {
		m.ActiveArtifact = art.Filename
		m.ActiveVersion = art.Version
	}
	b.mu.Unlock()
	if !ok || !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "artifact not found"})
		return
	}
	c.JSON(http.StatusOK, art)
}

func (b *Backend) DeleteArtifact(c *gin.Context) {
	id, aid := api.ID(c.Param("id")), api.ID(c.Param("aid"))
	b.mu.Lock()
	art, i, found := b.findArtifact(id, aid)
	if found {
		arts := b.artifacts[id]
		b.artifacts[id] = append(arts[:i:i], arts[i+1:]...)
		delete(b.blobs, aid)
		if m := b.byID[id]; m != nil && m.ActiveArtifact == art.Filename && m.ActiveVersion == art.Version {
			m.ActiveArtifact = ""
			m.ActiveVersion = ""
		}
	}
	b.mu.Unlock()
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "artifact not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadArtifact serves one artifact, or the active one when the
// artifact segment is "active".
func (b *Backend) DownloadArtifact(c *gin.Context) {
	id, aid := api.ID(c.Param("id")), api.ID(c.Param("aid"))

	b.mu.Lock()
	var (
		art   api.Artifact
		found bool
	)
	if aid == activeArtifactID {
		if m, ok := b.byID[id]; ok && m.HasActiveArtifact() {
			for _, a := range b.artifacts[id] {
				if a.Filename == m.ActiveArtifact && a.Version == m.ActiveVersion {
					art, found = a, true
				}
			}
		}
	} else {
		art, _, found = b.findArtifact(id, aid)
	}
	data := b.blobs[art.ID]
	b.mu.Unlock()

	if !found {
		detail := "artifact not found"
		if aid == activeArtifactID {
			detail = "No active artifact"
		}
		c.JSON(http.StatusNotFound, gin.H{"detail": detail})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
	tarMagic  = []byte("ustar")
)

// IsArchive reports whether data starts like a zip, gzip or tar file.
func IsArchive(data []byte) bool {
	switch {
	case bytes.HasPrefix(data, zipMagic), bytes.HasPrefix(data, gzipMagic):
		return true
	case len(data) >= 262 && bytes.Equal(data[257:262], tarMagic):
		return true
	}
	return false
}
