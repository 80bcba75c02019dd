package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasklink/internal/config"
	"tasklink/internal/exitcode"
	"tasklink/internal/service"
	"tasklink/internal/viewmodel"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
}

// SetDescription sets the description (for testing).
func (c *AddCmd) SetDescription(desc string) {
	c.description = desc
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string     { return "tasklink add [--desc <text>] <title...>" }
func (c *AddCmd) NeedsAuth() bool   { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "desc", "", "")
	fs.StringVar(&c.description, "d", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	// Join args to form title
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	in := service.CreateInput{Title: title}
	if strings.TrimSpace(c.description) != "" {
		in.Description = service.String(c.description)
	}

	vm := viewmodel.New(env.Service, env.Identity.UserID, viewmodel.WithLogger(env.Logger))
	task, err := vm.CreateTask(ctx, in)
	if err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok: %s\n", task.ID)
	}
	return exitcode.Success
}
