package commands

import (
	"context"
	"flag"
	"io"

	"tasklink/internal/config"
	"tasklink/internal/exitcode"
	"tasklink/internal/output"
)

func init() {
	Register(&ShowCmd{})
}

// ShowCmd implements the show command.
type ShowCmd struct{}

func (c *ShowCmd) Name() string      { return "show" }
func (c *ShowCmd) Aliases() []string { return nil }
func (c *ShowCmd) Synopsis() string  { return "Show one task" }
func (c *ShowCmd) Usage() string     { return "tasklink show <id>" }
func (c *ShowCmd) NeedsAuth() bool   { return true }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ShowCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	id, err := taskIDArg(args)
	if err != nil {
		return usageError(errOut, err)
	}

	task, err := env.Service.Get(ctx, env.Identity.UserID, id)
	if err != nil {
		return fail(errOut, err)
	}

	output.FormatTaskDetail(out, task)
	return exitcode.Success
}
