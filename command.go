package pipeshell

// Command is a named stage implementation.
type Command interface {

	// Name returns the name used to invoke the command in a pipeline.
	Name() string

	// Help returns human-readable usage. The first line is a summary.
	Help() string

	// Run starts the stage. It receives the previous stage's output and
	// returns its own output stream, which should be produced lazily as the
	// next stage pulls from it.
	Run(ctx Context, input Stream, args Args) (*Output, error)
}

// Output is what a command hands back to the engine.
type Output struct {
	// Items is the stage's output stream. Nil means no items.
	Items Stream

	// Rendered reports that the command already presented its result
	// directly, so the caller should not print the items again.
	Rendered bool

	// Halt asks the engine to materialize Items immediately and stop the
	// pipeline if they consist of exactly one *ApprovalRequest.
	Halt bool
}

// RunFunc is the signature of a command body.
type RunFunc func(ctx Context, input Stream, args Args) (*Output, error)

// CommandFunc wraps a function for use as a Command.
type CommandFunc struct {
	name string
	help string
	fn   RunFunc
}

// Confirm the interface is implemented correctly.
var _ Command = (*CommandFunc)(nil)

// NewCommand returns a Command for the given function.
func NewCommand(name, help string, fn RunFunc) *CommandFunc {
	return &CommandFunc{name: name, help: help, fn: fn}
}

// Name of the command.
func (c *CommandFunc) Name() string {
	return c.name
}

// Help text of the command.
func (c *CommandFunc) Help() string {
	return c.help
}

// Run the command.
func (c *CommandFunc) Run(ctx Context, input Stream, args Args) (*Output, error) {
	return c.fn(ctx, input, args)
}

// Pass returns an Output that forwards s unchanged.
func Pass(s Stream) *Output {
	return &Output{Items: s}
}
