// Package store holds the dashboard's client-side view of the backend: one
// row per model, keyed by model id, with the model's artifacts and upload
// state alongside. Rows live in an arena slice in server order and are
// located through an id index. Readers receive copies.
package store

import (
	"errors"
	"sync"

	"observatory/internal/api"
)

var (
	// ErrUnknownModel is returned for ids the store has no row for.
	ErrUnknownModel = errors.New("unknown model")
	// ErrUploadInFlight is returned by BeginUpload when the model already
	// has an upload that has not been cleared.
	ErrUploadInFlight = errors.New("an upload is already in progress for this model")
)

// UploadState tracks the single upload a model may have in flight.
type UploadState struct {
	// Seq identifies the upload among all uploads in the store.
	Seq     uint64
	Percent int
	// Done is set once the upload finished, successfully or not. The state
	// stays visible until ClearUpload.
	Done bool
	Err  error
}

// Row is a read-only view of one model. Slices are copies.
type Row struct {
	Model           api.Model
	Artifacts       []api.Artifact
	ArtifactsLoaded bool
	Upload          *UploadState
}

// Uploading reports whether the row has upload state to display.
func (r Row) Uploading() bool {
	return r.Upload != nil
}

type row struct {
	model           api.Model
	artifacts       []api.Artifact
	artifactsLoaded bool
	upload          *UploadState
	// rev increments on every change to model or artifacts.
	rev uint64
}

func (r *row) view() Row {
	v := Row{
		Model:           r.model,
		ArtifactsLoaded: r.artifactsLoaded,
	}
	if r.artifacts != nil {
		v.Artifacts = append([]api.Artifact(nil), r.artifacts...)
	}
	if r.upload != nil {
		u := *r.upload
		v.Upload = &u
	}
	return v
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	rows     []*row
	index    map[api.ID]int
	loaded   bool
	onChange func()
	// uploads counts BeginUpload calls.
	uploads uint64
}

// New creates an empty store.
func New() *Store {
	return &Store{index: make(map[api.ID]int)}
}

// SetOnChange registers a callback invoked after every change, outside the
// lock.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) changed() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// ReplaceModels installs a fresh model list from the server. Artifacts and
// upload state of models that are still present are kept; rows for models
// that disappeared are dropped.
func (s *Store) ReplaceModels(models []api.Model) {
	s.mu.Lock()
	rows := make([]*row, 0, len(models))
	index := make(map[api.ID]int, len(models))
	for _, m := range models {
		if _, dup := index[m.ID]; dup {
			continue
		}
		var r *row
		if i, ok := s.index[m.ID]; ok {
			r = s.rows[i]
			r.model = m
			r.rev++
		} else {
			r = &row{model: m}
		}
		index[m.ID] = len(rows)
		rows = append(rows, r)
	}
	s.rows = rows
	s.index = index
	s.loaded = true
	s.mu.Unlock()
	s.changed()
}

// Loaded reports whether a model list has been installed at least once.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Len returns the number of rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Rows returns every row in server order.
func (s *Store) Rows() []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Row, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.view()
	}
	return out
}

// Row returns the row for id.
func (s *Store) Row(id api.ID) (Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.lookup(id)
	if r == nil {
		return Row{}, false
	}
	return r.view(), true
}

// At returns the row at position i in server order.
func (s *Store) At(i int) (Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.rows) {
		return Row{}, false
	}
	return s.rows[i].view(), true
}

func (s *Store) lookup(id api.ID) *row {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.rows[i]
}

// SetArtifacts replaces the artifact list of a model.
func (s *Store) SetArtifacts(id api.ID, arts []api.Artifact) error {
	s.mu.Lock()
	r := s.lookup(id)
	if r == nil {
		s.mu.Unlock()
		return ErrUnknownModel
	}
	r.artifacts = append([]api.Artifact(nil), arts...)
	r.artifactsLoaded = true
	r.rev++
	s.mu.Unlock()
	s.changed()
	return nil
}

// ReconcileModel overwrites one row's model with the server's version of it.
func (s *Store) ReconcileModel(m api.Model) error {
	s.mu.Lock()
	r := s.lookup(m.ID)
	if r == nil {
		s.mu.Unlock()
		return ErrUnknownModel
	}
	r.model = m
	r.rev++
	s.mu.Unlock()
	s.changed()
	return nil
}

// AppendModel adds a model the server just created, unless it is already
// present.
func (s *Store) AppendModel(m api.Model) {
	s.mu.Lock()
	if r := s.lookup(m.ID); r != nil {
		r.model = m
		r.rev++
	} else {
		s.index[m.ID] = len(s.rows)
		s.rows = append(s.rows, &row{model: m})
	}
	s.mu.Unlock()
	s.changed()
}
