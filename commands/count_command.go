package commands

import (
	"github.com/deepnoodle-ai/pipeshell"
)

type CountCommand struct{}

func NewCountCommand() pipeshell.Command {
	return &CountCommand{}
}

func (c *CountCommand) Name() string {
	return "count"
}

func (c *CountCommand) Help() string {
	return "Emit the number of input items.\n\nUsage: count"
}

func (c *CountCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	items := func(yield func(pipeshell.Item, error) bool) {
		n := 0
		for _, err := range input {
			if err != nil {
				yield(nil, err)
				return
			}
			n++
		}
		yield(n, nil)
	}
	return &pipeshell.Output{Items: items}, nil
}
