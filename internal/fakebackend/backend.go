// Package fakebackend is an in-memory implementation of the model backend's
// REST API. It backs tests and `observatory --demo`; it is not a reference
// for how a real backend behaves.
package fakebackend

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"observatory/internal/api"
)

type failure struct {
	status int
	detail string
}

// Backend holds models and artifacts in memory and counts every request by
// route, e.g. "POST /api/models/:id/train".
type Backend struct {
	mu        sync.Mutex
	models    []*api.Model
	byID      map[api.ID]*api.Model
	artifacts map[api.ID][]api.Artifact
	blobs     map[api.ID][]byte
	jobs      []api.Job
	nextID    int
	requests  map[string]int
	bodies    map[string][]byte
	failures  map[string]failure
	// hold, when set, blocks requests on a route until the channel is
	// closed.
	hold map[string]chan struct{}
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		byID:      make(map[api.ID]*api.Model),
		artifacts: make(map[api.ID][]api.Artifact),
		blobs:     make(map[api.ID][]byte),
		requests:  make(map[string]int),
		bodies:    make(map[string][]byte),
		failures:  make(map[string]failure),
		hold:      make(map[string]chan struct{}),
	}
}

// Demo returns a backend seeded with a handful of models in every status.
func Demo() *Backend {
	b := New()
	b.Seed(
		api.Model{Name: "gpt-demo", Task: api.TaskGeneration, Status: api.StatusReady},
		api.Model{Name: "intent-classifier", Task: api.TaskClassification, Status: api.StatusNeedsTraining},
		api.Model{Name: "doc-embedder", Task: api.TaskEmbedding, Status: api.StatusTraining},
		api.Model{Name: "warehouse-policy", Task: api.TaskRL, Status: api.StatusStale},
	)
	first := b.models[0].ID
	b.addArtifact(first, "weights.pt", "v1", []byte("demo weights"), true)
	b.addArtifact(first, "policy.zip", "v2", zipMagic, false)
	return b
}

// Seed adds models. Models without an id get the next sequential one.
func (b *Backend) Seed(models ...api.Model) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range models {
		b.insertModel(m)
	}
}

func (b *Backend) insertModel(m api.Model) *api.Model {
	if m.ID == "" {
		m.ID = b.newID()
	}
	if m.Status == "" {
		m.Status = api.StatusNeedsTraining
	}
	mm := m
	b.models = append(b.models, &mm)
	b.byID[mm.ID] = &mm
	return &mm
}

func (b *Backend) newID() api.ID {
	b.nextID++
	return api.ID(strconv.Itoa(b.nextID))
}

// Handler returns a gin engine serving the API under /api.
func (b *Backend) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), Logging(), b.record())
	b.RegisterRoutes(r.Group("/api"))
	return r
}

func (b *Backend) RegisterRoutes(r *gin.RouterGroup) {
	// Models
	r.GET("/models", b.ListModels)
	r.POST("/models", b.CreateModel)
	r.POST("/models/:id/needs-training", b.MarkNeedsTraining)
	r.POST("/models/:id/train", b.StartTraining)
	r.POST("/models/:id/simulate", b.StartSimulation)

	// Artifacts
	r.GET("/models/:id/artifacts", b.ListArtifacts)
	r.POST("/models/:id/artifacts", b.UploadArtifact)
	r.GET("/models/:id/artifacts/:aid/download", b.DownloadArtifact)
	r.POST("/models/:id/artifacts/:aid/promote", b.PromoteArtifact)
	r.DELETE("/models/:id/artifacts/:aid", b.DeleteArtifact)
}

// record counts requests, keeps JSON bodies and applies injected failures
// and holds before the handler runs.
func (b *Backend) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + " " + c.FullPath()

		var body []byte
		if c.ContentType() == "application/json" && c.Request.Body != nil {
			buf := new(bytes.Buffer)
			_, _ = buf.ReadFrom(c.Request.Body)
			body = buf.Bytes()
			c.Request.Body = readCloser{bytes.NewReader(body)}
		}

		b.mu.Lock()
		b.requests[key]++
		if body != nil {
			b.bodies[key] = body
		}
		f, failing := b.failures[key]
		if failing {
			delete(b.failures, key)
		}
		hold := b.hold[key]
		b.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-c.Request.Context().Done():
				c.AbortWithStatus(http.StatusServiceUnavailable)
				return
			}
		}
		if failing {
			c.AbortWithStatusJSON(f.status, gin.H{"detail": f.detail})
			return
		}
		c.Next()
	}
}

type readCloser struct{ *bytes.Reader }

func (readCloser) Close() error { return nil }

// Count returns how many requests hit route, written as
// "METHOD /api/path/:param".
func (b *Backend) Count(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[route]
}

// Total returns the number of requests of every route.
func (b *Backend) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.requests {
		n += c
	}
	return n
}

// ResetCounts forgets recorded requests and bodies.
func (b *Backend) ResetCounts() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = make(map[string]int)
	b.bodies = make(map[string][]byte)
}

// LastBody returns the last JSON body sent to route.
func (b *Backend) LastBody(route string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.bodies[route]...)
}

// FailNext makes the next request to route answer status with a detail
// message.
func (b *Backend) FailNext(route string, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, detail: detail}
}

// Hold blocks requests to route until the returned release function is
// called.
func (b *Backend) Hold(route string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.hold[route] = ch
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.hold, route)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Models returns a snapshot of the stored models.
func (b *Backend) Models() []api.Model {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]api.Model, len(b.models))
	for i, m := range b.models {
		out[i] = *m
	}
	return out
}

// Model returns one stored model.
func (b *Backend) Model(id api.ID) (api.Model, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.byID[id]
	if !ok {
		return api.Model{}, false
	}
	return *m, true
}

// Artifacts returns a snapshot of a model's artifacts.
func (b *Backend) Artifacts(id api.ID) []api.Artifact {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.Artifact(nil), b.artifacts[id]...)
}

// Jobs returns every job started so far.
func (b *Backend) Jobs() []api.Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.Job(nil), b.jobs...)
}

func (b *Backend) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("fakebackend(%d models, %d jobs)", len(b.models), len(b.jobs))
}
