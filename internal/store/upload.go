package store

import "observatory/internal/api"

// BeginUpload marks an upload as started for id. It fails with
// ErrUploadInFlight while an earlier upload of the model is running. A
// finished upload still on display is replaced.
func (s *Store) BeginUpload(id api.ID) error {
	s.mu.Lock()
	r := s.lookup(id)
	if r == nil {
		s.mu.Unlock()
		return ErrUnknownModel
	}
	if r.upload != nil && !r.upload.Done {
		s.mu.Unlock()
		return ErrUploadInFlight
	}
	s.uploads++
	r.upload = &UploadState{Seq: s.uploads}
	s.mu.Unlock()
	s.changed()
	return nil
}

// SetUploadPercent records progress. Values are clamped to 0..100 and never
// move backwards. Unknown ids and finished uploads are ignored.
func (s *Store) SetUploadPercent(id api.ID, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	s.mu.Lock()
	r := s.lookup(id)
	if r == nil || r.upload == nil || r.upload.Done || percent <= r.upload.Percent {
		s.mu.Unlock()
		return
	}
	r.upload.Percent = percent
	s.mu.Unlock()
	s.changed()
}

// FinishUpload sets progress to 100 and records the outcome. The state
// remains until ClearUpload. It returns the upload's Seq, or 0 when id has
// no upload.
func (s *Store) FinishUpload(id api.ID, err error) uint64 {
	s.mu.Lock()
	r := s.lookup(id)
	if r == nil || r.upload == nil {
		s.mu.Unlock()
		return 0
	}
	r.upload.Percent = 100
	r.upload.Done = true
	r.upload.Err = err
	seq := r.upload.Seq
	s.mu.Unlock()
	s.changed()
	return seq
}

// ClearUpload removes the finished upload seq of id. Running uploads and
// uploads begun after seq are kept.
func (s *Store) ClearUpload(id api.ID, seq uint64) {
	s.mu.Lock()
	r := s.lookup(id)
	if r == nil || r.upload == nil || !r.upload.Done || r.upload.Seq != seq {
		s.mu.Unlock()
		return
	}
	r.upload = nil
	s.mu.Unlock()
	s.changed()
}
