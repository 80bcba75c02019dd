package commands

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"tasklink/internal/guard"
)

// Entry-point commands: reachable without a session, and pointless with one.
const (
	SignInCommand  = "login"
	LandingCommand = "list"
)

// Registry holds registered commands.
type Registry struct {
	mu   sync.RWMutex
	cmds map[string]Command // name and aliases map to command
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		cmds: make(map[string]Command),
	}
}

// Register adds a command to the registry.
// Returns an error if the name or any alias is already registered.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := append([]string{c.Name()}, c.Aliases()...)
	for _, name := range names {
		if _, exists := r.cmds[name]; exists {
			return fmt.Errorf("command already registered: %s", name)
		}
	}
	for _, name := range names {
		r.cmds[name] = c
	}
	return nil
}

// Find looks up a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.cmds[name]
	return cmd, ok
}

// All returns all unique commands sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]Command)
	for _, cmd := range r.cmds {
		seen[cmd.Name()] = cmd
	}

	result := make([]Command, 0, len(seen))
	for _, name := range slices.Sorted(maps.Keys(seen)) {
		result = append(result, seen[name])
	}
	return result
}

// Rules returns the route guard configuration for the registered commands.
// A command's path is "/" followed by its primary name. Commands that do not
// need a session are public, except the sign-in entry point.
func (r *Registry) Rules() guard.Rules {
	rules := guard.Rules{
		Public:  []string{"/"},
		Entry:   []string{CommandPath(SignInCommand)},
		SignIn:  CommandPath(SignInCommand),
		Landing: CommandPath(LandingCommand),
	}
	for _, cmd := range r.All() {
		if !cmd.NeedsAuth() && cmd.Name() != SignInCommand {
			rules.Public = append(rules.Public, CommandPath(cmd.Name()))
		}
	}
	return rules
}

// CommandPath returns the guard path of a command name.
func CommandPath(name string) string {
	return "/" + name
}

// DefaultRegistry is the global command registry.
var DefaultRegistry = NewRegistry()

// Register adds a command to the default registry.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
