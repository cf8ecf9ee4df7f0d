package pipeshell

import (
	"context"
	"io"
	"log/slog"
)

// Context is handed to every command invocation. It carries cancellation
// from the caller plus the read-only facilities a stage may use.
type Context interface {
	context.Context

	// Env returns the read-only environment.
	Env() Env

	// Mode returns the presentation mode of the run.
	Mode() Mode

	// Stdout is where a rendering command writes. Tool mode runs get a
	// discarding writer so the envelope stays the only output.
	Stdout() io.Writer

	// Stderr is for diagnostics meant for a person.
	Stderr() io.Writer

	// Logger returns a logger annotated with the execution and stage.
	Logger() *slog.Logger

	// Prompter returns the interactive confirmer, or nil when the run is
	// not attached to a person.
	Prompter() Prompter

	// StageIndex is the absolute position of the stage in its pipeline.
	StageIndex() int
}

// Prompter asks a person to confirm something.
type Prompter interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f.
func (f PrompterFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

type stageContext struct {
	context.Context
	env      Env
	mode     Mode
	stdout   io.Writer
	stderr   io.Writer
	logger   *slog.Logger
	prompter Prompter
	index    int
}

func (c *stageContext) Env() Env             { return c.env }
func (c *stageContext) Mode() Mode           { return c.mode }
func (c *stageContext) Stdout() io.Writer    { return c.stdout }
func (c *stageContext) Stderr() io.Writer    { return c.stderr }
func (c *stageContext) Logger() *slog.Logger { return c.logger }
func (c *stageContext) Prompter() Prompter   { return c.prompter }
func (c *stageContext) StageIndex() int      { return c.index }

// ContextOptions configures NewContext.
type ContextOptions struct {
	Env        Env
	Mode       Mode
	Stdout     io.Writer
	Stderr     io.Writer
	Logger     *slog.Logger
	Prompter   Prompter
	StageIndex int
}

// NewContext builds a Context outside an Execution, which is mostly useful
// for testing commands on their own. Nil writers and loggers discard.
func NewContext(ctx context.Context, opts ContextOptions) Context {
	if opts.Mode == "" {
		opts.Mode = ModeHuman
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &stageContext{
		Context:  ctx,
		env:      opts.Env,
		mode:     opts.Mode,
		stdout:   opts.Stdout,
		stderr:   opts.Stderr,
		logger:   opts.Logger,
		prompter: opts.Prompter,
		index:    opts.StageIndex,
	}
}
