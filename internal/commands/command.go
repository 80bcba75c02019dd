// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"

	"tasklink/internal/config"
	"tasklink/internal/credential"
	"tasklink/internal/exitcode"
	"tasklink/internal/service"
	"tasklink/internal/session"
)

// Env is what the dispatcher hands a command besides its arguments.
// For commands that do not need a session, Identity, Service and Bridge
// are zero.
type Env struct {
	// Identity is the resolved session identity.
	Identity session.Identity

	// Service is the task store, carrying a credential for Identity.
	Service service.Service

	// Bridge mints credentials for Identity.
	Bridge *credential.Bridge

	Logger *slog.Logger

	// Connect builds a task store client that authenticates with tokens.
	// Always set, so front ends serving many sessions can connect per session.
	Connect func(tokens oauth2.TokenSource) (service.Service, error)

	// Gatherer exposes the process metrics. May be nil.
	Gatherer prometheus.Gatherer
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a session.
	// Commands like help, version, login, logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths, settings).
	// env.Service and env.Bridge are nil if NeedsAuth() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int
}

// fail prints err and returns the exit code for it.
func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitcode.For(err)
}

// taskIDArg returns the single task id argument.
func taskIDArg(args []string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", errTaskIDRequired
	}
	if len(args) > 1 {
		return "", fmt.Errorf("unexpected argument: %s", args[1])
	}
	return strings.TrimSpace(args[0]), nil
}

var errTaskIDRequired = errors.New("task id required")

// usageError prints an argument error and returns the user error code.
func usageError(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitcode.UserError
}
