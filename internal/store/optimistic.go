package store

import "observatory/internal/api"

// Change edits a row in place. The model and the artifact slice are the
// store's own copies.
type Change func(m *api.Model, arts *[]api.Artifact)

// Mutation records the state of a row before an optimistic change so that
// it can be rolled back.
type Mutation struct {
	ID        api.ID
	model     api.Model
	artifacts []api.Artifact
	rev       uint64
}

// Apply runs change against the row for id and returns the pre-change
// snapshot.
func (s *Store) Apply(id api.ID, change Change) (Mutation, error) {
	s.mu.Lock()
	r := s.lookup(id)
	if r == nil {
		s.mu.Unlock()
		return Mutation{}, ErrUnknownModel
	}
	mut := Mutation{
		ID:        id,
		model:     r.model,
		artifacts: append([]api.Artifact(nil), r.artifacts...),
	}
	change(&r.model, &r.artifacts)
	r.rev++
	mut.rev = r.rev
	s.mu.Unlock()
	s.changed()
	return mut, nil
}

// Rollback restores the row captured by mut. If the row changed again
// after the mutation was applied (a refresh or a later mutation), the newer
// state is kept and Rollback reports false.
func (s *Store) Rollback(mut Mutation) bool {
	s.mu.Lock()
	r := s.lookup(mut.ID)
	if r == nil || r.rev != mut.rev {
		s.mu.Unlock()
		return false
	}
	r.model = mut.model
	r.artifacts = mut.artifacts
	r.rev++
	s.mu.Unlock()
	s.changed()
	return true
}

// SetStatus sets the model status.
func SetStatus(status api.Status) Change {
	return func(m *api.Model, _ *[]api.Artifact) {
		m.Status = status
	}
}

// PromoteArtifact makes the artifact with artifactID the active one, if
// the row knows it.
func PromoteArtifact(artifactID api.ID) Change {
	return func(m *api.Model, arts *[]api.Artifact) {
		for _, a := range *arts {
			if a.ID == artifactID {
				m.ActiveArtifact = a.Filename
				m.ActiveVersion = a.Version
				return
			}
		}
	}
}

// RemoveArtifact drops the artifact with artifactID from the row.
func RemoveArtifact(artifactID api.ID) Change {
	return func(_ *api.Model, arts *[]api.Artifact) {
		kept := (*arts)[:0:0]
		for _, a := range *arts {
			if a.ID != artifactID {
				kept = append(kept, a)
			}
		}
		*arts = kept
	}
}
