package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"observatory/internal/api"
	"observatory/internal/config"
	"observatory/internal/fakebackend"
	"observatory/internal/logging"
	"observatory/internal/telemetry"
	"observatory/internal/ui"
)

// flags holds the parsed command line.
type flags struct {
	configPath string
	backendURL string
	demo       bool
	demoAddr   string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("observatory", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "path to a YAML config file (default $HOME/.observatory/config.yaml)")
	fs.StringVar(&f.backendURL, "backend", "", "backend base URL, overrides backend_url")
	fs.BoolVar(&f.demo, "demo", false, "run against an in-memory demo backend")
	fs.StringVar(&f.demoAddr, "demo-addr", "127.0.0.1:0", "listen address of the demo backend")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: observatory [flags]\n\n")
		fmt.Fprintf(fs.Output(), "Terminal dashboard for ML models: list and create models, manage\n")
		fmt.Fprintf(fs.Output(), "artifacts and start training and simulation jobs.\n\n")
		fmt.Fprintf(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	return f, nil
}

// settingsFrom maps the loaded configuration onto dashboard settings.
func settingsFrom(cfg *config.Config) ui.Settings {
	return ui.Settings{
		DownloadDir:      cfg.DownloadDir,
		UploadClearDelay: cfg.UI.UploadClearDelay,
		RefreshInterval:  cfg.UI.RefreshInterval,
		Epochs:           cfg.Training.Epochs,
		Scenario:         cfg.Simulation.Scenario,
	}
}

func run(f flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.backendURL != "" {
		cfg.BackendURL = f.backendURL
	}

	// The alt screen owns the terminal, so logs go to a file.
	closeLog, err := logging.Setup(logging.Options{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		File:   cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    true,
	})
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			log.WithError(err).Warn("flush traces")
		}
	}()

	if f.demo {
		srv, err := fakebackend.Start(fakebackend.Demo(), f.demoAddr)
		if err != nil {
			return fmt.Errorf("start demo backend: %w", err)
		}
		defer srv.Close()
		cfg.BackendURL = srv.URL()
		log.WithField("url", cfg.BackendURL).Info("demo backend started")
	}

	client, err := api.NewClient(api.Options{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"backend": client.BaseURL(),
		"demo":    f.demo,
	}).Info("observatory starting")

	model := ui.NewAppModel(client, settingsFrom(cfg)).AsTeaModel()
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "observatory: %v\n", err)
		os.Exit(1)
	}
}
