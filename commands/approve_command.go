package commands

import (
	"fmt"

	"github.com/deepnoodle-ai/pipeshell"
)

// DefaultApprovalPrompt is shown when approve is given no --prompt.
const DefaultApprovalPrompt = "Approve?"

const approveHelp = `Ask for approval before the rest of the pipeline runs.

Usage: approve [--prompt TEXT]

In human mode with an interactive terminal the prompt is asked directly:
yes passes the items on, no fails the pipeline. Otherwise the pipeline halts
and a resume token is issued. Resuming with approval replays the items into
the next stage.`

// ErrNotApproved is returned when an interactive approval is declined.
var ErrNotApproved = fmt.Errorf("not approved")

// ApproveCommand halts a pipeline pending a decision.
type ApproveCommand struct{}

func NewApproveCommand() pipeshell.Command {
	return &ApproveCommand{}
}

func (c *ApproveCommand) Name() string {
	return "approve"
}

func (c *ApproveCommand) Help() string {
	return approveHelp
}

func (c *ApproveCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	prompt := args.StringOr("prompt", DefaultApprovalPrompt)
	if ctx.Mode() == pipeshell.ModeHuman && ctx.Prompter() != nil {
		return c.confirm(ctx, input, prompt), nil
	}
	items := func(yield func(pipeshell.Item, error) bool) {
		collected, err := pipeshell.Collect(input)
		if err != nil {
			yield(nil, err)
			return
		}
		yield(pipeshell.NewApprovalRequest(prompt, collected), nil)
	}
	return &pipeshell.Output{Items: items, Halt: true}, nil
}

// confirm asks once all input has arrived, so the operator sees the prompt
// only after upstream work succeeded.
func (c *ApproveCommand) confirm(ctx pipeshell.Context, input pipeshell.Stream, prompt string) *pipeshell.Output {
	items := func(yield func(pipeshell.Item, error) bool) {
		collected, err := pipeshell.Collect(input)
		if err != nil {
			yield(nil, err)
			return
		}
		approved, err := ctx.Prompter().Confirm(ctx, fmt.Sprintf("%s (%d items)", prompt, len(collected)))
		if err != nil {
			yield(nil, fmt.Errorf("failed to read approval: %w", err))
			return
		}
		if !approved {
			yield(nil, ErrNotApproved)
			return
		}
		for _, item := range collected {
			if !yield(item, nil) {
				return
			}
		}
	}
	return &pipeshell.Output{Items: items}
}
