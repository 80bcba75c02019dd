package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasklink/internal/config"
	"tasklink/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasklink help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tasklink                                           List tasks
  tasklink list [common flags] [--filter all|pending|completed] [--page <n>]
  tasklink show [common flags] <id>
  tasklink add [common flags] [--desc <text>] <title...>
  tasklink create [common flags] [--desc <text>] <title...>
  tasklink edit [common flags] [--title <t>] [--desc <d>] [--done|--undone] <id>
  tasklink toggle [common flags] <id>
  tasklink done [common flags] <id>
  tasklink rm [common flags] <id>
  tasklink import [common flags] [--list <list-name>]
  tasklink token [common flags]
  tasklink serve [common flags] [--addr <host:port>]
  tasklink login [common flags]
  tasklink logout [common flags]
  tasklink help
  tasklink version

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Environment:
  TASKLINK_API_URL            Task service base URL (default http://localhost:8000)
  TASKLINK_AUTH_SECRET        Secret shared with the task service
  BETTER_AUTH_SECRET          Accepted when TASKLINK_AUTH_SECRET is unset
  TASKLINK_ALLOW_DEV_SECRET   Allow the development secret when no secret is set
`
