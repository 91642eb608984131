package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"observatory/internal/api"
)

func modelCommands() []obsCommand {
	return []obsCommand{
		&listModels{},
		&createModel{},
		&needsTraining{},
		&train{},
		&simulate{},
	}
}

type listModels struct {
	output outputFlag
}

func (*listModels) Name() string { return "list" }

func (*listModels) Help() Help {
	return Help{
		Synopsis: "List models.",
		Example:  "obsctl models list -o yaml",
	}
}

func (c *listModels) SetFlags(f *flag.FlagSet) {
	f.Var(&c.output, "o", "output format: table, json or yaml")
}

func (c *listModels) Execute(ctx context.Context, e *Env, args []string) error {
	if len(args) != 0 {
		return usageError("unexpected arguments: %s", strings.Join(args, " "))
	}
	models, err := e.Client.ListModels(ctx)
	if err != nil {
		return err
	}
	return c.output.write(e.Stdout, models, modelHeaders, modelRows(models))
}

type createModel struct {
	task   string
	output outputFlag
}

func (*createModel) Name() string { return "create" }

func (*createModel) Help() Help {
	return Help{
		Synopsis: "Create a model.",
		Args:     "NAME",
		Detail: `Create a model named NAME. The backend assigns its id and initial status.

Tasks: generation, classification, embedding, rl, other.`,
		Example: "obsctl models create -task embedding doc-embedder",
	}
}

func (c *createModel) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.task, "task", string(api.TaskGeneration), "task of the model")
	f.Var(&c.output, "o", "output format: table, json or yaml")
}

func (c *createModel) Execute(ctx context.Context, e *Env, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return usageError("expected exactly one NAME")
	}
	task, err := api.ParseTask(c.task)
	if err != nil {
		return usageError("%s", err)
	}
	m, err := e.Client.CreateModel(ctx, strings.TrimSpace(args[0]), task)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"id": m.ID, "name": m.Name}).Info("model created")
	return c.output.write(e.Stdout, m, modelHeaders, modelRows([]api.Model{m}))
}

type needsTraining struct{}

func (*needsTraining) Name() string { return "needs-training" }

func (*needsTraining) Help() Help {
	return Help{
		Synopsis: "Mark a model as needing training.",
		Args:     "MODEL_ID",
	}
}

func (*needsTraining) SetFlags(*flag.FlagSet) {}

func (*needsTraining) Execute(ctx context.Context, e *Env, args []string) error {
	id, err := modelArg(args)
	if err != nil {
		return err
	}
	m, err := e.Client.MarkNeedsTraining(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.Stdout, "%s is now %s\n", displayName(m, id), api.StatusNeedsTraining)
	return nil
}

type train struct {
	epochs int
}

func (*train) Name() string { return "train" }

func (*train) Help() Help {
	return Help{
		Synopsis: "Start a training job.",
		Args:     "MODEL_ID",
		Detail: `Start training MODEL_ID. -epochs defaults to training.epochs from the
config file.`,
		Example: "obsctl models train -epochs 5 3",
	}
}

func (c *train) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.epochs, "epochs", 0, "number of epochs (default from config)")
}

func (c *train) Execute(ctx context.Context, e *Env, args []string) error {
	id, err := modelArg(args)
	if err != nil {
		return err
	}
	epochs := c.epochs
	if epochs <= 0 {
		epochs = e.Config.Training.Epochs
	}
	job, err := e.Client.StartTraining(ctx, id, epochs)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.Stdout, "training started for model %s (%d epochs)%s\n", id, epochs, jobSuffix(job))
	return nil
}

type simulate struct {
	scenario string
}

func (*simulate) Name() string { return "simulate" }

func (*simulate) Help() Help {
	return Help{
		Synopsis: "Start a simulation.",
		Args:     "MODEL_ID",
		Detail: `Start a simulation of MODEL_ID. -scenario defaults to simulation.scenario
from the config file.`,
	}
}

func (c *simulate) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.scenario, "scenario", "", "scenario name (default from config)")
}

func (c *simulate) Execute(ctx context.Context, e *Env, args []string) error {
	id, err := modelArg(args)
	if err != nil {
		return err
	}
	scenario := strings.TrimSpace(c.scenario)
	if scenario == "" {
		scenario = e.Config.Simulation.Scenario
	}
	job, err := e.Client.StartSimulation(ctx, id, scenario)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.Stdout, "simulation %q started for model %s%s\n", scenario, id, jobSuffix(job))
	return nil
}

func modelArg(args []string) (api.ID, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", usageError("expected exactly one MODEL_ID")
	}
	return api.ID(strings.TrimSpace(args[0])), nil
}

func displayName(m api.Model, id api.ID) string {
	if m.Name != "" {
		return m.Name
	}
	return "model " + id.String()
}

func jobSuffix(j api.Job) string {
	if j.ID == "" {
		return ""
	}
	return fmt.Sprintf(": job %s", j.ID)
}
