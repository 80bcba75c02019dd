package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasklink/internal/config"
	"tasklink/internal/exitcode"
	"tasklink/internal/output"
	"tasklink/internal/service"
	"tasklink/internal/viewmodel"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `tasklink` (no args) and `tasklink list`.
type ListCmd struct {
	filter string
	page   int
}

// SetFilter sets the filter name (for testing).
func (c *ListCmd) SetFilter(filter string) {
	c.filter = filter
}

// SetPage sets the page number (for testing).
func (c *ListCmd) SetPage(page int) {
	c.page = page
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "tasklink list [--filter all|pending|completed] [--page <n>]"
}
func (c *ListCmd) NeedsAuth() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "all", "")
	fs.StringVar(&c.filter, "f", "all", "")
	fs.IntVar(&c.page, "page", 1, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	page := c.page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		fmt.Fprintf(errOut, "error: invalid page number: %d\n", page)
		return exitcode.UserError
	}

	filter, err := service.ParseFilter(c.filter)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	vm := viewmodel.New(env.Service, env.Identity.UserID,
		viewmodel.WithFilter(filter),
		viewmodel.WithPage(page),
		viewmodel.WithPageSize(cfg.Settings.PageSize),
		viewmodel.WithLogger(env.Logger),
	)
	if err := vm.Load(ctx); err != nil {
		return fail(errOut, err)
	}

	snap := vm.Snapshot()
	if len(snap.Tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	output.FormatSnapshot(out, snap)
	return exitcode.Success
}
