package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"observatory/internal/jsonutil"
)

// ID identifies a model, artifact or job. Backends disagree on whether ids
// are strings or integers, so both decode into the same type.
type ID string

func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(jsonutil.ToString(v))
	return nil
}

// Task is the category of work a model performs.
type Task string

const (
	TaskGeneration     Task = "generation"
	TaskClassification Task = "classification"
	TaskEmbedding      Task = "embedding"
	TaskRL             Task = "rl"
	TaskOther          Task = "other"
)

// Tasks lists every task category in display order.
var Tasks = []Task{TaskGeneration, TaskClassification, TaskEmbedding, TaskRL, TaskOther}

// Label returns the human-readable name shown in selectors.
func (t Task) Label() string {
	switch t {
	case TaskGeneration:
		return "Generation"
	case TaskClassification:
		return "Classification"
	case TaskEmbedding:
		return "Embedding"
	case TaskRL:
		return "RL"
	case TaskOther:
		return "Other"
	default:
		return string(t)
	}
}

// ParseTask resolves a task from its wire value or label, case-insensitively.
func ParseTask(s string) (Task, error) {
	s = strings.TrimSpace(s)
	for _, t := range Tasks {
		if strings.EqualFold(s, string(t)) || strings.EqualFold(s, t.Label()) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown task %q (want one of %s)", s, taskNames())
}

func taskNames() string {
	names := make([]string, len(Tasks))
	for i, t := range Tasks {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// Status is the lifecycle state the backend reports for a model.
type Status string

const (
	StatusReady         Status = "ready"
	StatusTraining      Status = "training"
	StatusNeedsTraining Status = "needs-training"
	StatusStale         Status = "stale"
)

// Known reports whether s is one of the documented lifecycle states.
func (s Status) Known() bool {
	switch s {
	case StatusReady, StatusTraining, StatusNeedsTraining, StatusStale:
		return true
	}
	return false
}

// Model is a named ML asset tracked by the backend.
type Model struct {
	ID             ID     `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Task           Task   `json:"task" yaml:"task"`
	Status         Status `json:"status" yaml:"status"`
	ActiveArtifact string `json:"active_artifact,omitempty" yaml:"active_artifact,omitempty"`
	ActiveVersion  string `json:"active_version,omitempty" yaml:"active_version,omitempty"`
}

// HasActiveArtifact reports whether the backend named an active artifact file.
func (m Model) HasActiveArtifact() bool {
	return m.ActiveArtifact != ""
}

// Artifact is a versioned file attached to a model.
type Artifact struct {
	ID        ID     `json:"id" yaml:"id"`
	ModelID   ID     `json:"model_id" yaml:"model_id"`
	Version   string `json:"version" yaml:"version"`
	Filename  string `json:"filename" yaml:"filename"`
	Size      int64  `json:"size" yaml:"size"`
	IsArchive bool   `json:"is_archive" yaml:"is_archive"`
}

// Job is the acknowledgement returned when training or a simulation starts.
// Backends may return an empty body, in which case every field is zero.
type Job struct {
	ID      ID     `json:"id,omitempty" yaml:"id,omitempty"`
	ModelID ID     `json:"model_id,omitempty" yaml:"model_id,omitempty"`
	Kind    string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Status  string `json:"status,omitempty" yaml:"status,omitempty"`
}

// CreateModelRequest is the body of POST /api/models.
type CreateModelRequest struct {
	Name string `json:"name"`
	Task Task   `json:"task"`
}

// TrainRequest is the body of POST /api/models/{id}/train.
type TrainRequest struct {
	Epochs int `json:"epochs"`
}

// SimulateRequest is the body of POST /api/models/{id}/simulate.
type SimulateRequest struct {
	Scenario string `json:"scenario"`
}
