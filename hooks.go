package pipeshell

import (
	"context"
	"time"
)

// Hooks receives execution lifecycle events.
type Hooks interface {
	// Run-level hooks
	BeforeRun(ctx context.Context, event *RunEvent)
	AfterRun(ctx context.Context, event *RunEvent)

	// Stage-level hooks. BeforeStage fires as each command is invoked.
	// Because stages stream into each other, AfterStage fires for every
	// invoked stage once the whole run has settled.
	BeforeStage(ctx context.Context, event *StageEvent)
	AfterStage(ctx context.Context, event *StageEvent)
}

// RunEvent describes one execution of a pipeline
type RunEvent struct {
	ExecutionID string
	Pipeline    Pipeline
	Mode        Mode
	Resumed     bool
	IndexOffset int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Result      *RunResult
	Error       error
}

// StageEvent describes one stage of an execution
type StageEvent struct {
	ExecutionID string
	Index       int
	Command     string
	Args        Args
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Items       int
	Error       error
}

// BaseHooks provides a default implementation that does nothing
type BaseHooks struct{}

func (h *BaseHooks) BeforeRun(ctx context.Context, event *RunEvent) {
	// noop
}

func (h *BaseHooks) AfterRun(ctx context.Context, event *RunEvent) {
	// noop
}

func (h *BaseHooks) BeforeStage(ctx context.Context, event *StageEvent) {
	// noop
}

func (h *BaseHooks) AfterStage(ctx context.Context, event *StageEvent) {
	// noop
}

// NewBaseHooks creates a new no-op hooks implementation.
// Embed this in your own hooks to get a default implementation that does nothing.
func NewBaseHooks() Hooks {
	return &BaseHooks{}
}

// HookChain allows chaining multiple hook implementations
type HookChain struct {
	hooks []Hooks
}

// NewHookChain creates a new hook chain
func NewHookChain(hooks ...Hooks) *HookChain {
	return &HookChain{hooks: hooks}
}

// Add adds hooks to the chain
func (c *HookChain) Add(hooks Hooks) {
	c.hooks = append(c.hooks, hooks)
}

func (c *HookChain) BeforeRun(ctx context.Context, event *RunEvent) {
	for _, h := range c.hooks {
		h.BeforeRun(ctx, event)
	}
}

func (c *HookChain) AfterRun(ctx context.Context, event *RunEvent) {
	for _, h := range c.hooks {
		h.AfterRun(ctx, event)
	}
}

func (c *HookChain) BeforeStage(ctx context.Context, event *StageEvent) {
	for _, h := range c.hooks {
		h.BeforeStage(ctx, event)
	}
}

func (c *HookChain) AfterStage(ctx context.Context, event *StageEvent) {
	for _, h := range c.hooks {
		h.AfterStage(ctx, event)
	}
}
