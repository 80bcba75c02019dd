package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"

	"tasklink/internal/backend/taskapi"
	"tasklink/internal/commands"
	"tasklink/internal/config"
	"tasklink/internal/credential"
	"tasklink/internal/exitcode"
	"tasklink/internal/metrics"
	"tasklink/internal/service"
	"tasklink/internal/session"
)

// ServiceFactory creates a Service that authenticates with tokens.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config, tokens oauth2.TokenSource, logger *slog.Logger) (service.Service, error)

// StoreFactory connects to the configured task-storage service. Calls are
// recorded in m when it is non-nil.
func StoreFactory(m *metrics.Store) ServiceFactory {
	return func(ctx context.Context, cfg *config.Config, tokens oauth2.TokenSource, logger *slog.Logger) (service.Service, error) {
		return taskapi.New(tokens, taskapi.Options{
			BaseURL: cfg.Settings.APIURL,
			Timeout: cfg.Settings.Timeout,
			Logger:  logger,
			Metrics: m,
		})
	}
}

// DefaultFactory connects to the configured task-storage service without metrics.
var DefaultFactory = StoreFactory(nil)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSessions replaces the session.json store the dispatcher consults.
func WithSessions(open func(cfg *config.Config) session.Source) Option {
	return func(d *Dispatcher) { d.sessions = open }
}

// WithGatherer exposes g to commands that serve metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(d *Dispatcher) { d.gatherer = g }
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
	sessions func(cfg *config.Config) session.Source
	gatherer prometheus.Gatherer
}

func fileSessions(cfg *config.Config) session.Source {
	return session.NewFileStore(cfg.SessionPath())
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
// A nil factory uses DefaultFactory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory, opts ...Option) *Dispatcher {
	if factory == nil {
		factory = DefaultFactory
	}
	d := &Dispatcher{
		registry: registry,
		factory:  factory,
		sessions: fileSessions,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to the landing command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, commands.LandingCommand, nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return flagError(errOut, err)
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	logger := newLogger(errOut, debug)
	env := &commands.Env{
		Logger:   logger,
		Gatherer: d.gatherer,
		Connect: func(tokens oauth2.TokenSource) (service.Service, error) {
			return d.factory(ctx, cfg, tokens, logger)
		},
	}

	store := d.sessions(cfg)
	if code, ok := d.guard(cmd, store, quiet, logger, out, errOut); !ok {
		return code
	}

	if cmd.NeedsAuth() {
		if code, ok := authorize(ctx, cfg, env, store, errOut); !ok {
			return code
		}
		logger.Debug("Session resolved", slog.String("user_id", env.Identity.UserID))
	}

	return cmd.Run(ctx, cfg, env, positionalArgs, out, errOut)
}

// guard asks the route rules about cmd. Only the session indicator is
// consulted here.
func (d *Dispatcher) guard(cmd commands.Command, ind session.Indicator, quiet bool, logger *slog.Logger, out, errOut io.Writer) (int, bool) {
	rules := d.registry.Rules()
	decision := rules.Decide(commands.CommandPath(cmd.Name()), ind.HasIndicator())
	if decision.Allowed() {
		return exitcode.Success, true
	}
	logger.Debug("Command redirected by route guard",
		slog.String("command", cmd.Name()), slog.String("target", decision.Target))
	if decision.Target == rules.Landing {
		if !quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success, false
	}
	fmt.Fprintln(errOut, "error: not logged in (run: tasklink login)")
	return exitcode.AuthError, false
}

// authorize resolves the session and fills env with the identity, the
// credential bridge and a connected store.
func authorize(ctx context.Context, cfg *config.Config, env *commands.Env, resolver session.Resolver, errOut io.Writer) (int, bool) {
	id, err := resolver.Resolve(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: auth error: %v (run: tasklink login)\n", err)
		return exitcode.AuthError, false
	}

	bridge, err := credential.New(cfg.Settings.AuthSecret, cfg.Settings.AllowDevSecret)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.For(err), false
	}

	svc, err := env.Connect(bridge.TokenSource(id))
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return exitcode.BackendError, false
	}

	env.Identity = id
	env.Bridge = bridge
	env.Service = svc
	return exitcode.Success, true
}

func flagError(errOut io.Writer, err error) int {
	errStr := err.Error()

	// Check for missing flag value
	if strings.Contains(errStr, "needs a value") || strings.Contains(errStr, "flag needs an argument") {
		parts := strings.Split(errStr, ":")
		if len(parts) > 0 {
			flagPart := strings.TrimSpace(parts[len(parts)-1])
			fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagPart)
			return exitcode.UserError
		}
	}

	// Check for unknown flag
	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
		return exitcode.UserError
	}

	fmt.Fprintf(errOut, "error: %s\n", errStr)
	return exitcode.UserError
}

// newLogger logs warnings and errors to errOut, or everything with --debug.
func newLogger(errOut io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
}
