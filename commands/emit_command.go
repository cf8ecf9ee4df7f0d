package commands

import (
	"encoding/json"

	"github.com/deepnoodle-ai/pipeshell"
)

const emitHelp = `Emit literal items after the input items.

Usage: emit <value...>

Each value that parses as JSON is emitted as the decoded value; anything
else is emitted as a string.`

type EmitCommand struct{}

func NewEmitCommand() pipeshell.Command {
	return &EmitCommand{}
}

func (c *EmitCommand) Name() string {
	return "emit"
}

func (c *EmitCommand) Help() string {
	return emitHelp
}

func (c *EmitCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	values := args.Positional()
	literals := make([]pipeshell.Item, len(values))
	for i, v := range values {
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			literals[i] = decoded
		} else {
			literals[i] = v
		}
	}
	items := func(yield func(pipeshell.Item, error) bool) {
		for item, err := range input {
			if !yield(item, err) || err != nil {
				return
			}
		}
		for _, item := range literals {
			if !yield(item, nil) {
				return
			}
		}
	}
	return &pipeshell.Output{Items: items}, nil
}
