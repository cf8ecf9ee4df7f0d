package commands

import (
	"fmt"

	"github.com/deepnoodle-ai/pipeshell"
)

type HeadCommand struct{}

func NewHeadCommand() pipeshell.Command {
	return &HeadCommand{}
}

func (c *HeadCommand) Name() string {
	return "head"
}

func (c *HeadCommand) Help() string {
	return "Pass only the first items.\n\nUsage: head [--n COUNT]\n\nCOUNT defaults to 10. Upstream stages stop once enough items were read."
}

func (c *HeadCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	n, err := args.Int("n", 10)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("--n must not be negative")
	}
	return pipeshell.Pass(pipeshell.Take(input, n)), nil
}
