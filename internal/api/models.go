package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// DefaultEpochs is the epoch count sent when training is started without one.
const DefaultEpochs = 3

// DefaultScenario is the simulation scenario sent when none is chosen.
const DefaultScenario = "smoke"

// ListModels returns every model the backend knows about.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	models := []Model{}
	if err := c.doJSON(ctx, "list models", http.MethodGet, c.apipath("models"), nil, &models, messagesFor("listing models")); err != nil {
		return nil, err
	}
	return models, nil
}

// CreateModel registers a new model. The returned Model is zero if the
// backend answered without a body.
func (c *Client) CreateModel(ctx context.Context, name string, task Task) (Model, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Model{}, fmt.Errorf("create model: name is required")
	}
	var created Model
	req := CreateModelRequest{Name: name, Task: task}
	if err := c.doJSON(ctx, "create model", http.MethodPost, c.apipath("models"), req, &created, messagesFor("creating model")); err != nil {
		return Model{}, err
	}
	return created, nil
}

// MarkNeedsTraining flags a model as needing training.
func (c *Client) MarkNeedsTraining(ctx context.Context, id ID) (Model, error) {
	var m Model
	if err := c.doJSON(ctx, "mark needs training", http.MethodPost, c.apipath("models", id.String(), "needs-training"), nil, &m, messagesFor("marking model")); err != nil {
		return Model{}, err
	}
	return m, nil
}

// StartTraining starts a training job. epochs <= 0 means DefaultEpochs.
func (c *Client) StartTraining(ctx context.Context, id ID, epochs int) (Job, error) {
	if epochs <= 0 {
		epochs = DefaultEpochs
	}
	var job Job
	if err := c.doJSON(ctx, "start training", http.MethodPost, c.apipath("models", id.String(), "train"), TrainRequest{Epochs: epochs}, &job, messagesFor("starting training")); err != nil {
		return Job{}, err
	}
	return job, nil
}

// StartSimulation starts a simulation run. An empty scenario means DefaultScenario.
func (c *Client) StartSimulation(ctx context.Context, id ID, scenario string) (Job, error) {
	scenario = strings.TrimSpace(scenario)
	if scenario == "" {
		scenario = DefaultScenario
	}
	var job Job
	if err := c.doJSON(ctx, "start simulation", http.MethodPost, c.apipath("models", id.String(), "simulate"), SimulateRequest{Scenario: scenario}, &job, messagesFor("starting simulation")); err != nil {
		return Job{}, err
	}
	return job, nil
}
