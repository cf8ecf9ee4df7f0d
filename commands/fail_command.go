package commands

import (
	"errors"

	"github.com/deepnoodle-ai/pipeshell"
)

// FailCommand fails the pipeline with the given message once it is pulled.
type FailCommand struct{}

func NewFailCommand() pipeshell.Command {
	return &FailCommand{}
}

func (c *FailCommand) Name() string {
	return "fail"
}

func (c *FailCommand) Help() string {
	return "Fail the pipeline.\n\nUsage: fail [--message TEXT]"
}

func (c *FailCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	message := args.StringOr("message", "failed")
	items := func(yield func(pipeshell.Item, error) bool) {
		for _, err := range input {
			if err != nil {
				yield(nil, err)
				return
			}
		}
		yield(nil, errors.New(message))
	}
	return &pipeshell.Output{Items: items}, nil
}
