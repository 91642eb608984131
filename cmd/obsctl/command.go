package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"

	"observatory/internal/api"
	"observatory/internal/config"
)

// Help message components.
type Help struct {
	// Synopsis is the one-line description shown in command lists.
	Synopsis string
	// Args describes positional arguments, e.g. "MODEL_ID FILE".
	Args string
	// Detail is the long description. Synopsis is used when empty.
	Detail string
	// Example shows a typical invocation.
	Example string
}

// obsCommand is one leaf command. Build wraps it as a subcommands.Command.
type obsCommand interface {
	Name() string
	Help() Help
	SetFlags(f *flag.FlagSet)
	// Execute runs the command. Returning ErrUsage prints the usage message
	// and exits with a usage error.
	Execute(ctx context.Context, e *Env, args []string) error
}

// ErrUsage is returned from Execute when arguments are invalid.
var ErrUsage = errors.New("usage error")

// usageError wraps ErrUsage with a reason shown to the user.
func usageError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// Env is what every command runs against.
type Env struct {
	Client *api.Client
	Config *config.Config
	Stdout io.Writer
	Stderr io.Writer
	Now    func() time.Time
}

// envLoader builds the Env lazily so that help commands work without a
// reachable config or backend.
type envLoader func() (*Env, error)

// Build wraps c as a subcommands.Command named "parent name".
func Build(c obsCommand, parent string, load envLoader) subcommands.Command {
	return &command{c: c, parent: parent, load: load}
}

type command struct {
	c      obsCommand
	parent string
	load   envLoader
}

var _ subcommands.Command = &command{}

func (c *command) Name() string     { return c.c.Name() }
func (c *command) Synopsis() string { return c.c.Help().Synopsis }

func (c *command) Usage() string {
	return BuildUsageMessage(strings.TrimSpace(c.parent+" "+c.c.Name()), c.c.Help())
}

func (c *command) SetFlags(f *flag.FlagSet) { c.c.SetFlags(f) }

func (c *command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := c.load()
	if err != nil {
		log.WithError(err).Error("cannot start")
		return subcommands.ExitFailure
	}

	logger := log.WithField("command", strings.TrimSpace(c.parent+" "+c.c.Name()))
	if err := c.c.Execute(ctx, e, f.Args()); err != nil {
		if errors.Is(err, ErrUsage) {
			fmt.Fprintln(e.Stderr, err)
			fmt.Fprint(e.Stderr, c.Usage())
			f.SetOutput(e.Stderr)
			f.PrintDefaults()
			return subcommands.ExitUsageError
		}
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			logger = logger.WithField("detail", apiErr.Detail())
		}
		logger.WithError(err).Error("command failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// BuildUsageMessage renders the usage text of a command. Flags are appended
// by the caller.
func BuildUsageMessage(command string, help Help) string {
	indent := func(s string) string {
		return "  " + strings.ReplaceAll(s, "\n", "\n  ")
	}

	line := "Usage: " + command + " [flags]"
	if help.Args != "" {
		line += " " + help.Args
	}
	message := []string{line, ""}

	if help.Detail != "" {
		message = append(message, indent(strings.TrimSpace(help.Detail)))
	} else {
		message = append(message, indent(strings.TrimSpace(help.Synopsis)))
	}
	if help.Example != "" {
		message = append(message, "", "Example:", indent(strings.TrimSpace(help.Example)))
	}
	message = append(message, "", "Flags:", "")
	return strings.Join(message, "\n")
}

// group is a command holding further commands, e.g. "obsctl models".
type group struct {
	name     string
	synopsis string
	parent   string
	cmds     []obsCommand
	load     envLoader
	stdout   io.Writer
	stderr   io.Writer
}

var _ subcommands.Command = &group{}

func (g *group) Name() string     { return g.name }
func (g *group) Synopsis() string { return g.synopsis }

func (g *group) Usage() string {
	names := make([]string, 0, len(g.cmds))
	for _, c := range g.cmds {
		names = append(names, c.Name())
	}
	return fmt.Sprintf("Usage: %s %s <%s> [flags] [args]\n\n  %s\n",
		g.parent, g.name, strings.Join(names, "|"), g.synopsis)
}

func (g *group) SetFlags(*flag.FlagSet) {}

func (g *group) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	full := strings.TrimSpace(g.parent + " " + g.name)
	top := flag.NewFlagSet(full, flag.ContinueOnError)
	top.SetOutput(g.stderr)
	cdr := subcommands.NewCommander(top, full)
	cdr.Output = g.stdout
	cdr.Error = g.stderr
	cdr.Register(cdr.HelpCommand(), "")
	cdr.Register(cdr.CommandsCommand(), "")
	for _, c := range g.cmds {
		cdr.Register(Build(c, full, g.load), "")
	}
	if err := top.Parse(f.Args()); err != nil {
		return subcommands.ExitUsageError
	}
	return cdr.Execute(ctx, args...)
}
