package pipeshell_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/deepnoodle-ai/pipeshell"
	"github.com/deepnoodle-ai/pipeshell/commands"
	"github.com/stretchr/testify/require"
)

// eventRecorder is a Hooks implementation that keeps a readable trail.
type eventRecorder struct {
	pipeshell.BaseHooks
	events []string
}

func (r *eventRecorder) BeforeRun(ctx context.Context, event *pipeshell.RunEvent) {
	r.events = append(r.events, fmt.Sprintf("BeforeRun: offset=%d resumed=%t stages=%d",
		event.IndexOffset, event.Resumed, len(event.Pipeline)))
}

func (r *eventRecorder) AfterRun(ctx context.Context, event *pipeshell.RunEvent) {
	r.events = append(r.events, fmt.Sprintf("AfterRun: halted=%t error=%v",
		event.Result != nil && event.Result.Halted, event.Error))
}

func (r *eventRecorder) BeforeStage(ctx context.Context, event *pipeshell.StageEvent) {
	r.events = append(r.events, fmt.Sprintf("BeforeStage: %d %s", event.Index, event.Command))
}

func (r *eventRecorder) AfterStage(ctx context.Context, event *pipeshell.StageEvent) {
	r.events = append(r.events, fmt.Sprintf("AfterStage: %d %s items=%d", event.Index, event.Command, event.Items))
}

func TestHooksAcrossHaltAndResume(t *testing.T) {
	registry, err := commands.NewRegistry(commands.Options{})
	require.NoError(t, err)
	codec := pipeshell.NewTokenCodec([]byte("hooks-test"))

	first := &eventRecorder{}
	execution, err := pipeshell.NewExecution(pipeshell.ExecutionOptions{
		Pipeline: pipeshell.MustParsePipeline(`emit 1 2 | approve --prompt "ship it?" | count`),
		Registry: registry,
		Mode:     pipeshell.ModeTool,
		Hooks:    first,
	})
	require.NoError(t, err)

	result, err := execution.Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Halted)
	require.Equal(t, 1, result.HaltedAt.Index)
	require.Equal(t, pipeshell.ExecutionStatusHalted, execution.Status())
	require.Equal(t, []string{
		"BeforeRun: offset=0 resumed=false stages=3",
		"BeforeStage: 0 emit",
		"BeforeStage: 1 approve",
		"AfterStage: 0 emit items=2",
		"AfterStage: 1 approve items=1",
		"AfterRun: halted=true error=<nil>",
	}, first.events)

	token, err := codec.Encode(result.Continuation)
	require.NoError(t, err)
	cont, err := codec.Decode(token)
	require.NoError(t, err)
	require.Equal(t, "ship it?", cont.Prompt)
	require.Equal(t, 2, cont.ResumeAtIndex)

	second := &eventRecorder{}
	resumed, err := pipeshell.NewExecution(pipeshell.ExecutionOptions{
		Registry: registry,
		Mode:     pipeshell.ModeTool,
		Hooks:    second,
	})
	require.NoError(t, err)
	result, err = resumed.Resume(context.Background(), cont)
	require.NoError(t, err)
	require.False(t, result.Halted)
	require.Equal(t, []pipeshell.Item{2}, result.Items)
	require.Equal(t, pipeshell.ExecutionStatusCompleted, resumed.Status())
	require.Equal(t, []string{
		"BeforeRun: offset=2 resumed=true stages=1",
		"BeforeStage: 2 count",
		"AfterStage: 2 count items=1",
		"AfterRun: halted=false error=<nil>",
	}, second.events)
}

func ExampleExecution_Run() {
	registry := pipeshell.MustRegistry(
		pipeshell.NewCommand("greet", "Emit a greeting per name.", func(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
			names := pipeshell.FromSlice([]pipeshell.Item{"ada", "grace"})
			return pipeshell.Pass(pipeshell.Map(names, func(item pipeshell.Item) (pipeshell.Item, error) {
				return args.StringOr("greeting", "hello") + " " + item.(string), nil
			})), nil
		}),
	)
	execution, err := pipeshell.NewExecution(pipeshell.ExecutionOptions{
		Pipeline: pipeshell.MustParsePipeline("greet --greeting=hi"),
		Registry: registry,
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	result, err := execution.Run(context.Background())
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(result.Items...)
	// Output: hi ada hi grace
}
