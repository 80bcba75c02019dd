package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasklink/internal/backend/googletasks"
	"tasklink/internal/config"
	"tasklink/internal/exitcode"
	"tasklink/internal/importer"
)

func init() {
	Register(&ImportCmd{})
}

// ImportCmd copies open Google Tasks into the task store.
type ImportCmd struct {
	listName string
	source   importer.Source
}

// SetListName sets the source list name (for testing).
func (c *ImportCmd) SetListName(name string) {
	c.listName = name
}

// SetSource replaces the Google Tasks source (for testing).
func (c *ImportCmd) SetSource(src importer.Source) {
	c.source = src
}

func (c *ImportCmd) Name() string      { return "import" }
func (c *ImportCmd) Aliases() []string { return nil }
func (c *ImportCmd) Synopsis() string  { return "Import open tasks from Google Tasks" }
func (c *ImportCmd) Usage() string     { return "tasklink import [--list <list-name>]" }
func (c *ImportCmd) NeedsAuth() bool   { return true }

func (c *ImportCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *ImportCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	src := c.source
	if src == nil {
		if !cfg.HasToken() {
			fmt.Fprintln(errOut, "error: no Google token (run: tasklink logout, then tasklink login)")
			return exitcode.AuthError
		}
		gt, err := googletasks.New(ctx, cfg)
		if err != nil {
			fmt.Fprintf(errOut, "error: auth error: %v\n", err)
			return exitcode.AuthError
		}
		src = gt
	}

	res, err := importer.New(src, env.Service, env.Logger).Run(ctx, env.Identity.UserID, c.listName)
	if err != nil {
		msg := err.Error()
		if strings.HasPrefix(msg, "list not found") || strings.HasPrefix(msg, "ambiguous list name") {
			fmt.Fprintf(errOut, "error: %s\n", msg)
			return exitcode.UserError
		}
		if res.Imported > 0 {
			fmt.Fprintf(errOut, "imported %d before failure\n", res.Imported)
		}
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok: imported %d, skipped %d\n", res.Imported, res.Skipped)
	}
	return exitcode.Success
}
