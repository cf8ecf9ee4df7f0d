package pipeshell

import (
	"fmt"
	"sort"
	"strings"
)

// Registry maps command names to implementations. It is built once and is
// safe to share between executions because it never changes.
type Registry struct {
	commands map[string]Command
	names    []string
}

// NewRegistry builds a registry. Names must be non-empty and unique.
func NewRegistry(commands ...Command) (*Registry, error) {
	byName := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		if cmd == nil {
			return nil, fmt.Errorf("nil command")
		}
		name := cmd.Name()
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("command name required")
		}
		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("duplicate command %q", name)
		}
		byName[name] = cmd
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Registry{commands: byName, names: names}, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(commands ...Command) *Registry {
	r, err := NewRegistry(commands...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the command registered under name.
func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Names returns the sorted command names.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	return len(r.names)
}

// Summary returns the first line of a command's help text.
func Summary(cmd Command) string {
	help := strings.TrimSpace(cmd.Help())
	first, _, _ := strings.Cut(help, "\n")
	return strings.TrimSpace(first)
}
