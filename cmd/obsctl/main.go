// Command obsctl is the scriptable counterpart of the observatory
// dashboard: it lists and creates models, starts training and simulation
// jobs, and manages artifacts on the backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"

	"observatory/internal/api"
	"observatory/internal/config"
	"observatory/internal/logging"
	"observatory/internal/telemetry"
)

// commonFlags are accepted before the command name.
type commonFlags struct {
	configPath string
	backendURL string
	logLevel   string
}

func (cf *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&cf.configPath, "config", "", "path to a YAML config file (default $HOME/.observatory/config.yaml)")
	fs.StringVar(&cf.backendURL, "backend", "", "backend base URL, overrides backend_url")
	fs.StringVar(&cf.logLevel, "log-level", "", "log level, overrides log.level")
}

// app owns the process-wide setup shared by every command.
type app struct {
	flags  commonFlags
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time

	once     sync.Once
	env      *Env
	err      error
	shutdown telemetry.ShutdownFunc
}

// load reads config, sets up logging and tracing and builds the client.
// It runs at most once.
func (a *app) load() (*Env, error) {
	a.once.Do(func() {
		a.env, a.err = a.setup()
	})
	return a.env, a.err
}

func (a *app) setup() (*Env, error) {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return nil, err
	}
	if a.flags.backendURL != "" {
		cfg.BackendURL = a.flags.backendURL
	}
	if a.flags.logLevel != "" {
		cfg.Logger.Level = a.flags.logLevel
	}

	if _, err := logging.Setup(logging.Options{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: a.stderr,
	}); err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Setup(context.Background(), telemetry.Options{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("set up tracing: %w", err)
	}
	a.shutdown = shutdown

	client, err := api.NewClient(api.Options{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	log.WithField("backend", client.BaseURL()).Debug("obsctl starting")

	return &Env{
		Client: client,
		Config: cfg,
		Stdout: a.stdout,
		Stderr: a.stderr,
		Now:    a.now,
	}, nil
}

func (a *app) close() {
	if a.shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		log.WithError(err).Warn("flush traces")
	}
}

// run executes the command line args (without the program name) and
// returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	log.SetOutput(stderr)
	a := &app{stdout: stdout, stderr: stderr, now: time.Now}
	defer a.close()

	top := flag.NewFlagSet("obsctl", flag.ContinueOnError)
	top.SetOutput(stderr)
	a.flags.register(top)

	cdr := subcommands.NewCommander(top, "obsctl")
	cdr.Output = stdout
	cdr.Error = stderr
	cdr.Register(cdr.HelpCommand(), "")
	cdr.Register(cdr.FlagsCommand(), "")
	cdr.Register(cdr.CommandsCommand(), "")
	cdr.Register(&group{
		name:     "models",
		synopsis: "List, create, train and simulate models.",
		parent:   "obsctl",
		cmds:     modelCommands(),
		load:     a.load,
		stdout:   stdout,
		stderr:   stderr,
	}, "")
	cdr.Register(&group{
		name:     "artifacts",
		synopsis: "List, upload, download, promote and delete artifacts.",
		parent:   "obsctl",
		cmds:     artifactCommands(),
		load:     a.load,
		stdout:   stdout,
		stderr:   stderr,
	}, "")

	if err := top.Parse(args); err != nil {
		return int(subcommands.ExitUsageError)
	}
	return int(cdr.Execute(ctx))
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
