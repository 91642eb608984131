// Package config loads observatory settings from defaults, an optional YAML
// file and OBSERVATORY_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g.
	// OBSERVATORY_BACKEND_URL or OBSERVATORY_UI_UPLOAD_CLEAR_DELAY.
	EnvPrefix = "OBSERVATORY"
	// DirName is the per-user directory under $HOME.
	DirName = ".observatory"

	defaultBackendURL       = "http://localhost:8000"
	defaultRequestTimeout   = 10 * time.Second
	defaultUploadClearDelay = 1500 * time.Millisecond
	defaultEpochs           = 3
	defaultScenario         = "smoke"
	defaultServiceName      = "observatory"
)

type Config struct {
	BackendURL     string
	RequestTimeout time.Duration
	DownloadDir    string
	LogFile        string
	Logger         LoggerConfig
	UI             UIConfig
	Training       TrainingConfig
	Simulation     SimulationConfig
	Telemetry      TelemetryConfig
}

type LoggerConfig struct {
	Level  string
	Format string
}

type UIConfig struct {
	UploadClearDelay time.Duration
	// RefreshInterval of zero disables periodic refresh.
	RefreshInterval time.Duration
}

type TrainingConfig struct {
	Epochs int
}

type SimulationConfig struct {
	Scenario string
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

// Dir returns $HOME/.observatory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DirName), nil
}

// Load reads configuration. An explicit path must exist; otherwise
// $HOME/.observatory/config.yaml is read when present.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("backend_url", defaultBackendURL)
	v.SetDefault("request_timeout", defaultRequestTimeout.String())
	v.SetDefault("download_dir", ".")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log_file", "")
	v.SetDefault("ui.upload_clear_delay", defaultUploadClearDelay.String())
	v.SetDefault("ui.refresh_interval", "0s")
	v.SetDefault("training.epochs", defaultEpochs)
	v.SetDefault("simulation.scenario", defaultScenario)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", defaultServiceName)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dir, dirErr := Dir()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if dirErr == nil {
		v.SetConfigFile(filepath.Join(dir, "config.yaml"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		BackendURL:  strings.TrimSpace(v.GetString("backend_url")),
		DownloadDir: v.GetString("download_dir"),
		LogFile:     v.GetString("log_file"),
		Logger: LoggerConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Training: TrainingConfig{
			Epochs: v.GetInt("training.epochs"),
		},
		Simulation: SimulationConfig{
			Scenario: strings.TrimSpace(v.GetString("simulation.scenario")),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: v.GetString("telemetry.otlp_endpoint"),
			ServiceName:  v.GetString("telemetry.service_name"),
		},
	}

	var err error
	if cfg.RequestTimeout, err = duration(v, "request_timeout"); err != nil {
		return nil, err
	}
	if cfg.UI.UploadClearDelay, err = duration(v, "ui.upload_clear_delay"); err != nil {
		return nil, err
	}
	if cfg.UI.RefreshInterval, err = duration(v, "ui.refresh_interval"); err != nil {
		return nil, err
	}

	if cfg.BackendURL == "" {
		cfg.BackendURL = defaultBackendURL
	}
	if cfg.Training.Epochs <= 0 {
		cfg.Training.Epochs = defaultEpochs
	}
	if cfg.Simulation.Scenario == "" {
		cfg.Simulation.Scenario = defaultScenario
	}
	if cfg.LogFile == "" && dirErr == nil {
		cfg.LogFile = filepath.Join(dir, "observatory.log")
	}
	if cfg.Telemetry.OTLPEndpoint == "" {
		cfg.Telemetry.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = defaultServiceName
	}
	return cfg, nil
}

// duration parses key as a time.Duration. Bare integers are seconds.
func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		d2, err2 := time.ParseDuration(raw + "s")
		if err2 != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
		}
		d = d2
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, raw)
	}
	return d, nil
}
