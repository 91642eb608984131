// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Options selects level, format and destination.
type Options struct {
	Level  string
	Format string
	// File, when set, receives log output instead of Output. Parent
	// directories are created.
	File   string
	Output io.Writer
}

// Setup applies opts to the standard logrus logger. The returned close
// function releases the log file, if one was opened.
func Setup(opts Options) (func() error, error) {
	level, err := log.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(Formatter(opts.Format))

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	closeFn := func() error { return nil }
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = f.Close
	}
	log.SetOutput(out)
	return closeFn, nil
}

// Formatter returns the JSON formatter for "json" and a timestamped text
// formatter otherwise.
func Formatter(format string) log.Formatter {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return &log.JSONFormatter{}
	}
	return &log.TextFormatter{FullTimestamp: true, DisableColors: true}
}
