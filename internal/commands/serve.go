package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"tasklink/internal/config"
	"tasklink/internal/credential"
	"tasklink/internal/exitcode"
	"tasklink/internal/session"
	"tasklink/internal/web"
)

// DefaultServeAddr is where serve listens by default.
const DefaultServeAddr = "127.0.0.1:3000"

const serveShutdownTimeout = 5 * time.Second

func init() {
	Register(&ServeCmd{})
}

// ServeCmd runs the web front end until the context is cancelled.
type ServeCmd struct {
	addr     string
	listener net.Listener
}

// SetListener makes serve use l instead of listening on its address (for testing).
func (c *ServeCmd) SetListener(l net.Listener) {
	c.listener = l
}

func (c *ServeCmd) Name() string      { return "serve" }
func (c *ServeCmd) Aliases() []string { return nil }
func (c *ServeCmd) Synopsis() string  { return "Serve the task list over HTTP" }
func (c *ServeCmd) Usage() string     { return "tasklink serve [--addr <host:port>]" }
func (c *ServeCmd) NeedsAuth() bool   { return false }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", DefaultServeAddr, "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bridge, err := credential.New(cfg.Settings.AuthSecret, cfg.Settings.AllowDevSecret)
	if err != nil {
		return fail(errOut, err)
	}

	srv, err := web.NewServer(web.Options{
		Sessions: session.NewFileStore(cfg.SessionPath()),
		Bridge:   bridge,
		Connect:  env.Connect,
		PageSize: cfg.Settings.PageSize,
		Gatherer: env.Gatherer,
		Logger:   logger,
	})
	if err != nil {
		return fail(errOut, err)
	}

	l := c.listener
	if l == nil {
		addr := c.addr
		if addr == "" {
			addr = DefaultServeAddr
		}
		l, err = net.Listen("tcp", addr)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}

	httpServer := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(l)
	}()

	if !cfg.Quiet {
		fmt.Fprintf(out, "listening on http://%s\n", l.Addr())
	}
	logger.Info("Web server started", slog.String("addr", l.Addr().String()))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.BackendError
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Web server shutdown failed", slog.String("error", err.Error()))
		}
	}
	return exitcode.Success
}
