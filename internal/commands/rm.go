package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasklink/internal/config"
	"tasklink/internal/exitcode"
	"tasklink/internal/viewmodel"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "tasklink rm <id>" }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	id, err := taskIDArg(args)
	if err != nil {
		return usageError(errOut, err)
	}

	vm := viewmodel.New(env.Service, env.Identity.UserID, viewmodel.WithLogger(env.Logger))
	if err := vm.DeleteTask(ctx, id); err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
