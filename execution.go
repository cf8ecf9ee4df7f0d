package pipeshell

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.jetify.com/typeid"
)

// NewExecutionID returns a new unique execution identifier
func NewExecutionID() string {
	id, err := typeid.WithPrefix("run")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// ExecutionStatus represents the execution status
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusHalted    ExecutionStatus = "halted"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// HaltState identifies the stage at which a run stopped for approval.
type HaltState struct {
	Index int `json:"index"`
}

// ResumeAtIndex is the index of the first stage that has not run yet.
func (h HaltState) ResumeAtIndex() int {
	return h.Index + 1
}

// RunResult is the outcome of a successful or halted run. Failures are
// reported as errors instead.
type RunResult struct {
	Items    []Item     `json:"items"`
	Rendered bool       `json:"rendered"`
	Halted   bool       `json:"halted"`
	HaltedAt *HaltState `json:"haltedAt,omitempty"`

	// Continuation is set when Halted is true.
	Continuation *Continuation `json:"-"`
}

// ApprovalRequest returns the request that halted the run, if any.
func (r *RunResult) ApprovalRequest() (*ApprovalRequest, bool) {
	if r == nil || !r.Halted {
		return nil, false
	}
	return soleApprovalRequest(r.Items)
}

// UnknownCommandError is returned when a stage names an unregistered command.
type UnknownCommandError struct {
	Name string
}

// Error implements the error interface
func (e *UnknownCommandError) Error() string {
	return "Unknown command: " + e.Name
}

// Is matches ErrUnknownCommand.
func (e *UnknownCommandError) Is(target error) bool {
	return target == ErrUnknownCommand
}

// ExecutionOptions configures a new execution
type ExecutionOptions struct {
	Pipeline    Pipeline
	Registry    *Registry
	Env         Env
	Mode        Mode
	Input       Stream
	Logger      *slog.Logger
	Hooks       Hooks
	StageLogger StageLogger
	Stdout      io.Writer
	Stderr      io.Writer
	Prompter    Prompter
	ExecutionID string
}

// Execution runs one pipeline once.
type Execution struct {
	id          string
	pipeline    Pipeline
	input       Stream
	registry    *Registry
	env         Env
	mode        Mode
	logger      *slog.Logger
	hooks       Hooks
	stageLogger StageLogger
	stdout      io.Writer
	stderr      io.Writer
	prompter    Prompter

	mutex   sync.Mutex
	started bool
	status  ExecutionStatus
}

// NewExecution creates a new execution
func NewExecution(opts ExecutionOptions) (*Execution, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Hooks == nil {
		opts.Hooks = &BaseHooks{}
	}
	if opts.StageLogger == nil {
		opts.StageLogger = NewNullStageLogger()
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.Input == nil {
		opts.Input = Empty()
	}
	if opts.ExecutionID == "" {
		opts.ExecutionID = NewExecutionID()
	}
	return &Execution{
		id:          opts.ExecutionID,
		pipeline:    opts.Pipeline.Clone(),
		input:       opts.Input,
		registry:    opts.Registry,
		env:         opts.Env,
		mode:        mode,
		logger:      opts.Logger.With("execution_id", opts.ExecutionID),
		hooks:       opts.Hooks,
		stageLogger: opts.StageLogger,
		stdout:      opts.Stdout,
		stderr:      opts.Stderr,
		prompter:    opts.Prompter,
		status:      ExecutionStatusPending,
	}, nil
}

// ID returns the execution ID
func (e *Execution) ID() string {
	return e.id
}

// Status returns the current execution status
func (e *Execution) Status() ExecutionStatus {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.status
}

func (e *Execution) setStatus(status ExecutionStatus) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.status = status
}

func (e *Execution) start() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.started {
		return fmt.Errorf("execution already started")
	}
	e.started = true
	return nil
}

// Run the configured pipeline to completion, halt, or failure.
func (e *Execution) Run(ctx context.Context) (*RunResult, error) {
	if err := e.start(); err != nil {
		return nil, err
	}
	return e.run(ctx, e.pipeline, e.input, 0, false)
}

// Resume continues a halted pipeline from a decoded continuation. The
// Pipeline and Input options are ignored: the remaining stages come from the
// continuation and its items are replayed as their input.
func (e *Execution) Resume(ctx context.Context, cont *Continuation) (*RunResult, error) {
	if err := e.start(); err != nil {
		return nil, err
	}
	if cont == nil {
		return nil, tokenError("continuation is missing", nil)
	}
	if err := cont.Validate(); err != nil {
		return nil, tokenError("invalid continuation", err)
	}
	return e.run(ctx, cont.Pipeline.Clone(), FromSlice(cont.Items), cont.ResumeAtIndex, true)
}

func (e *Execution) run(ctx context.Context, pipeline Pipeline, input Stream, offset int, resumed bool) (*RunResult, error) {
	e.setStatus(ExecutionStatusRunning)
	startTime := time.Now()
	event := &RunEvent{
		ExecutionID: e.id,
		Pipeline:    pipeline.Clone(),
		Mode:        e.mode,
		Resumed:     resumed,
		IndexOffset: offset,
		StartTime:   startTime,
	}
	e.hooks.BeforeRun(ctx, event)
	e.logger.Info("starting execution",
		"stages", len(pipeline),
		"offset", offset,
		"resumed", resumed,
		"mode", e.mode)

	tracker := &runTracker{}
	result, err := e.execute(ctx, pipeline, input, offset, tracker)
	endTime := time.Now()
	e.settleStages(ctx, tracker, endTime)

	switch {
	case err != nil:
		e.setStatus(ExecutionStatusFailed)
		e.logger.Error("execution failed", "error", err)
	case result.Halted:
		e.setStatus(ExecutionStatusHalted)
		e.logger.Info("execution halted for approval", "stage", result.HaltedAt.Index)
	default:
		e.setStatus(ExecutionStatusCompleted)
		e.logger.Info("execution completed", "items", len(result.Items), "rendered", result.Rendered)
	}

	event.EndTime = endTime
	event.Duration = endTime.Sub(startTime)
	event.Result = result
	event.Error = err
	e.hooks.AfterRun(ctx, event)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// execute wires the stages together. Stage i+1 is only invoked after stage i
// returned its output stream; items then flow lazily as the final drain
// pulls them through.
func (e *Execution) execute(ctx context.Context, pipeline Pipeline, input Stream, offset int, tracker *runTracker) (*RunResult, error) {
	stream := input
	rendered := false

	for i, inv := range pipeline {
		index := offset + i
		cmd, ok := e.registry.Get(inv.Name)
		if !ok {
			return nil, &StageError{Index: index, Command: inv.Name, Err: &UnknownCommandError{Name: inv.Name}}
		}

		stage := tracker.begin(index, inv)
		e.hooks.BeforeStage(ctx, &StageEvent{
			ExecutionID: e.id,
			Index:       index,
			Command:     inv.Name,
			Args:        inv.Args.Clone(),
			StartTime:   stage.startTime,
		})
		e.logger.Debug("invoking stage", "stage", index, "command", inv.Name)

		output, err := cmd.Run(e.stageContext(ctx, index, inv.Name), stream, inv.Args.Clone())
		if err != nil {
			err = stageError(index, inv.Name, err)
			tracker.fail(stage, err)
			return nil, err
		}
		if output == nil {
			output = &Output{}
		}
		items := output.Items
		if items == nil {
			items = Empty()
		}
		stream = tracker.guard(stage, items)
		rendered = output.Rendered

		if output.Halt {
			collected, err := Collect(stream)
			if err != nil {
				return nil, err
			}
			if req, ok := soleApprovalRequest(collected); ok {
				return e.halt(pipeline, i, index, req), nil
			}
			// Not a lone approval request: the items flow on as data.
			stream = FromSlice(collected)
		}
	}

	items, err := Collect(stream)
	if err != nil {
		return nil, err
	}
	if len(pipeline) > 0 {
		if req, ok := soleApprovalRequest(items); ok {
			last := len(pipeline) - 1
			return e.halt(pipeline, last, offset+last, req), nil
		}
	}
	return &RunResult{Items: items, Rendered: rendered}, nil
}

func (e *Execution) halt(pipeline Pipeline, position, index int, req *ApprovalRequest) *RunResult {
	replay := copyItems(req.Items)
	if replay == nil {
		replay = []Item{}
	}
	return &RunResult{
		Items:    []Item{req},
		Halted:   true,
		HaltedAt: &HaltState{Index: index},
		Continuation: &Continuation{
			Version:       ContinuationVersion,
			Pipeline:      pipeline.Slice(position + 1),
			ResumeAtIndex: index + 1,
			Items:         replay,
			Prompt:        req.Prompt,
		},
	}
}

func (e *Execution) stageContext(ctx context.Context, index int, command string) Context {
	stdout := e.stdout
	if e.mode == ModeTool {
		stdout = io.Discard
	}
	return &stageContext{
		Context:  ctx,
		env:      e.env,
		mode:     e.mode,
		stdout:   stdout,
		stderr:   e.stderr,
		logger:   e.logger.With("stage", index, "command", command),
		prompter: e.prompter,
		index:    index,
	}
}

// settleStages reports every invoked stage once the run is over.
func (e *Execution) settleStages(ctx context.Context, tracker *runTracker, now time.Time) {
	for _, stage := range tracker.stages {
		endTime := stage.endTime
		if endTime.IsZero() {
			endTime = now
		}
		duration := endTime.Sub(stage.startTime)
		e.hooks.AfterStage(ctx, &StageEvent{
			ExecutionID: e.id,
			Index:       stage.index,
			Command:     stage.invocation.Name,
			Args:        stage.invocation.Args.Clone(),
			StartTime:   stage.startTime,
			EndTime:     endTime,
			Duration:    duration,
			Items:       stage.items,
			Error:       stage.err,
		})
		entry := &StageLogEntry{
			ExecutionID: e.id,
			Index:       stage.index,
			Command:     stage.invocation.Name,
			Args:        stage.invocation.Args.Map(),
			Items:       stage.items,
			StartTime:   stage.startTime,
			Duration:    duration.Seconds(),
		}
		if stage.err != nil {
			entry.Error = stage.err.Error()
		}
		if err := e.stageLogger.LogStage(ctx, entry); err != nil {
			e.logger.Error("failed to log stage", "stage", stage.index, "error", err)
		}
	}
}
