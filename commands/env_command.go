package commands

import (
	"github.com/deepnoodle-ai/pipeshell"
)

const envHelp = `Emit environment variables.

Usage: env [NAME...]

With names, emits the value of each variable that is set. Without names,
emits one {"name", "value"} object per variable, sorted by name.`

type EnvCommand struct{}

func NewEnvCommand() pipeshell.Command {
	return &EnvCommand{}
}

func (c *EnvCommand) Name() string {
	return "env"
}

func (c *EnvCommand) Help() string {
	return envHelp
}

func (c *EnvCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	env := ctx.Env()
	names := args.Positional()
	var out []pipeshell.Item
	if len(names) == 0 {
		for _, key := range env.Keys() {
			out = append(out, map[string]any{"name": key, "value": env.Get(key)})
		}
	} else {
		for _, name := range names {
			if value, ok := env.Lookup(name); ok {
				out = append(out, value)
			}
		}
	}
	return pipeshell.Pass(pipeshell.FromSlice(out)), nil
}
