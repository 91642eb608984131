package store

import "observatory/internal/api"

// Stats summarizes the rows by status.
type Stats struct {
	Models        int
	Ready         int
	Training      int
	NeedsTraining int
	Stale         int
	WithActive    int
}

// Stats computes counts over the current rows.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Models: len(s.rows)}
	for _, r := range s.rows {
		switch r.model.Status {
		case api.StatusReady:
			st.Ready++
		case api.StatusTraining:
			st.Training++
		case api.StatusNeedsTraining:
			st.NeedsTraining++
		case api.StatusStale:
			st.Stale++
		}
		if r.model.HasActiveArtifact() {
			st.WithActive++
		}
	}
	return st
}
