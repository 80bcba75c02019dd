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
	Register(&ToggleCmd{})
}

// ToggleCmd implements the toggle command.
type ToggleCmd struct{}

func (c *ToggleCmd) Name() string      { return "toggle" }
func (c *ToggleCmd) Aliases() []string { return []string{"done"} }
func (c *ToggleCmd) Synopsis() string  { return "Flip a task between pending and completed" }
func (c *ToggleCmd) Usage() string     { return "tasklink toggle <id>" }
func (c *ToggleCmd) NeedsAuth() bool   { return true }

func (c *ToggleCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ToggleCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	id, err := taskIDArg(args)
	if err != nil {
		return usageError(errOut, err)
	}

	vm := viewmodel.New(env.Service, env.Identity.UserID, viewmodel.WithLogger(env.Logger))
	task, err := vm.ToggleTask(ctx, id)
	if err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		status := "pending"
		if task.Completed {
			status = "completed"
		}
		fmt.Fprintf(out, "ok: %s %s\n", task.ID, status)
	}
	return exitcode.Success
}
