package commands

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/pipeshell"
)

const pickHelp = `Keep only the named fields of object items.

Usage: pick --fields a,b.c [--fields d]

Dotted names reach into nested objects and appear under the full dotted
name in the result. Missing fields are left out.`

type PickCommand struct{}

func NewPickCommand() pipeshell.Command {
	return &PickCommand{}
}

func (c *PickCommand) Name() string {
	return "pick"
}

func (c *PickCommand) Help() string {
	return pickHelp
}

func (c *PickCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	var fields []string
	for _, value := range append(args.Strings("fields"), args.Positional()...) {
		for _, f := range strings.Split(value, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("at least one field is required")
	}
	return pipeshell.Pass(pipeshell.Map(input, func(item pipeshell.Item) (pipeshell.Item, error) {
		if _, ok := item.(map[string]any); !ok {
			return nil, fmt.Errorf("pick expects objects, got %T", item)
		}
		out := make(map[string]any, len(fields))
		for _, f := range fields {
			if v, ok := field(item, f); ok {
				out[f] = v
			}
		}
		return out, nil
	})), nil
}
