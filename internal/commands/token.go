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
	Register(&TokenCmd{})
}

// TokenCmd prints a freshly minted credential for the signed-in user.
type TokenCmd struct{}

func (c *TokenCmd) Name() string      { return "token" }
func (c *TokenCmd) Aliases() []string { return nil }
func (c *TokenCmd) Synopsis() string  { return "Print a task-storage access token" }
func (c *TokenCmd) Usage() string     { return "tasklink token" }
func (c *TokenCmd) NeedsAuth() bool   { return true }

func (c *TokenCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *TokenCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	token, err := env.Bridge.Mint(env.Identity)
	if err != nil {
		return fail(errOut, err)
	}
	fmt.Fprintln(out, token)
	return exitcode.Success
}
