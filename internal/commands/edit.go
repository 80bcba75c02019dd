package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"tasklink/internal/config"
	"tasklink/internal/exitcode"
	"tasklink/internal/service"
	"tasklink/internal/viewmodel"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Only the flags given are changed.
type EditCmd struct {
	title       optionalString
	description optionalString
	done        bool
	undone      bool
}

// SetTitle sets the new title (for testing).
func (c *EditCmd) SetTitle(title string) { c.title.Set(title) }

// SetDescription sets the new description (for testing).
func (c *EditCmd) SetDescription(desc string) { c.description.Set(desc) }

// SetDone marks the task completed (for testing).
func (c *EditCmd) SetDone(done bool) { c.done = done }

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return []string{"update"} }
func (c *EditCmd) Synopsis() string  { return "Change a task" }
func (c *EditCmd) Usage() string {
	return "tasklink edit [--title <t>] [--desc <d>] [--done|--undone] <id>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title = optionalString{}
	c.description = optionalString{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.description, "desc", "")
	fs.Var(&c.description, "d", "")
	fs.BoolVar(&c.done, "done", false, "")
	fs.BoolVar(&c.undone, "undone", false, "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	id, err := taskIDArg(args)
	if err != nil {
		return usageError(errOut, err)
	}

	if c.done && c.undone {
		return usageError(errOut, errors.New("cannot use both --done and --undone"))
	}

	var patch service.UpdateInput
	if c.title.set {
		patch.Title = service.String(c.title.value)
	}
	if c.description.set {
		patch.Description = service.String(c.description.value)
	}
	switch {
	case c.done:
		patch.Completed = service.Bool(true)
	case c.undone:
		patch.Completed = service.Bool(false)
	}
	if patch.Empty() {
		return usageError(errOut, errors.New("nothing to change"))
	}

	vm := viewmodel.New(env.Service, env.Identity.UserID, viewmodel.WithLogger(env.Logger))
	task, err := vm.UpdateTask(ctx, id, patch)
	if err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok: %s\n", task.ID)
	}
	return exitcode.Success
}

// optionalString is a flag value that remembers whether it was given,
// so an explicit empty value can be told apart from an absent flag.
type optionalString struct {
	value string
	set   bool
}

func (o *optionalString) String() string { return o.value }

func (o *optionalString) Set(v string) error {
	o.value = v
	o.set = true
	return nil
}
