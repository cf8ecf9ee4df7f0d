package pipeshell

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPresenter(mode Mode) (*Presenter, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Presenter{
		Mode:   mode,
		Stdout: &stdout,
		Stderr: &stderr,
		Codec:  NewTokenCodec([]byte("present")),
	}, &stdout, &stderr
}

// decodeEnvelope requires that out holds exactly one JSON object.
func decodeEnvelope(t *testing.T, out string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(out))
	var env map[string]any
	require.NoError(t, dec.Decode(&env))
	require.False(t, dec.More(), "more than one envelope: %s", out)
	require.Equal(t, float64(ProtocolVersion), env["protocolVersion"])
	return env
}

func haltedResult() *RunResult {
	req := NewApprovalRequest("ship?", []Item{"a", 1.0})
	return &RunResult{
		Items:    []Item{req},
		Halted:   true,
		HaltedAt: &HaltState{Index: 0},
		Continuation: &Continuation{
			Version:       ContinuationVersion,
			Pipeline:      MustParsePipeline("count"),
			ResumeAtIndex: 1,
			Items:         req.Items,
			Prompt:        req.Prompt,
		},
	}
}

func TestPresentToolSuccess(t *testing.T) {
	p, stdout, stderr := newTestPresenter(ModeTool)
	code := p.Result(&RunResult{Items: []Item{1.0, "x", map[string]any{"k": true}}})
	require.Equal(t, 0, code)
	require.Empty(t, stderr.String())

	env := decodeEnvelope(t, stdout.String())
	require.Equal(t, true, env["ok"])
	require.Equal(t, StatusOK, env["status"])
	require.Equal(t, []any{1.0, "x", map[string]any{"k": true}}, env["output"])
	require.NotContains(t, env, "error")
	require.NotContains(t, env, "requiresApproval")
}

func TestPresentToolEmptyOutput(t *testing.T) {
	p, stdout, _ := newTestPresenter(ModeTool)
	require.Equal(t, 0, p.Result(&RunResult{}))
	env := decodeEnvelope(t, stdout.String())
	require.Equal(t, []any{}, env["output"])
}

func TestPresentToolHalt(t *testing.T) {
	p, stdout, _ := newTestPresenter(ModeTool)
	require.Equal(t, 0, p.Result(haltedResult()))

	env := decodeEnvelope(t, stdout.String())
	require.Equal(t, true, env["ok"])
	require.Equal(t, StatusNeedsApproval, env["status"])
	approval := env["requiresApproval"].(map[string]any)
	require.Equal(t, ApprovalRequestType, approval["type"])
	require.Equal(t, "ship?", approval["prompt"])
	require.Equal(t, []any{"a", 1.0}, approval["items"])

	cont, err := p.Codec.Decode(approval["resumeToken"].(string))
	require.NoError(t, err)
	require.Equal(t, 1, cont.ResumeAtIndex)
	require.Equal(t, []string{"count"}, cont.Pipeline.Names())
}

func TestPresentToolFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
		code int
	}{
		{name: "parse", err: &ParseError{Pos: 3, Message: "bad"}, kind: ErrorTypeParse, code: ExitParseError},
		{name: "stage", err: &StageError{Index: 1, Command: "x", Err: errors.New("boom")}, kind: ErrorTypeRuntime, code: ExitRuntimeError},
		{name: "token", err: tokenError("integrity check failed", nil), kind: ErrorTypeRuntime, code: ExitRuntimeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, stdout, _ := newTestPresenter(ModeTool)
			require.Equal(t, tt.code, p.Fail(tt.err))
			env := decodeEnvelope(t, stdout.String())
			require.Equal(t, false, env["ok"])
			require.NotContains(t, env, "output")
			errOut := env["error"].(map[string]any)
			require.Equal(t, tt.kind, errOut["type"])
			require.Equal(t, tt.err.Error(), errOut["message"])
		})
	}
}

func TestPresentToolUnencodableOutput(t *testing.T) {
	p, stdout, _ := newTestPresenter(ModeTool)
	code := p.Result(&RunResult{Items: []Item{func() {}}})
	require.Equal(t, ExitRuntimeError, code)
	env := decodeEnvelope(t, stdout.String())
	require.Equal(t, false, env["ok"])
	require.Contains(t, env["error"].(map[string]any)["message"], "failed to marshal envelope")
}

func TestPresentToolCancelled(t *testing.T) {
	p, stdout, _ := newTestPresenter(ModeTool)
	require.Equal(t, 0, p.Cancelled())
	env := decodeEnvelope(t, stdout.String())
	require.Equal(t, true, env["ok"])
	require.Equal(t, StatusCancelled, env["status"])
}

func TestPresentHuman(t *testing.T) {
	p, stdout, stderr := newTestPresenter(ModeHuman)
	require.Equal(t, 0, p.Result(&RunResult{Items: []Item{"line", map[string]any{"a": 1.0}}}))
	require.Equal(t, "line\n{\n  \"a\": 1\n}\n", stdout.String())
	require.Empty(t, stderr.String())

	p, stdout, _ = newTestPresenter(ModeHuman)
	require.Equal(t, 0, p.Result(&RunResult{Items: []Item{"hidden"}, Rendered: true}))
	require.Empty(t, stdout.String())
}

func TestPresentHumanHalt(t *testing.T) {
	p, stdout, stderr := newTestPresenter(ModeHuman)
	p.Program = "ps"
	require.Equal(t, 0, p.Result(haltedResult()))
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "approval required: ship?")
	require.Contains(t, stderr.String(), "2 item(s) pending")
	require.Contains(t, stderr.String(), "ps resume --approve yes --token ")
}

func TestPresentHumanFailure(t *testing.T) {
	p, stdout, stderr := newTestPresenter(ModeHuman)
	require.Equal(t, ExitParseError, p.Fail(&ParseError{Pos: 0, Message: "bad"}))
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "error: parse error at offset 0: bad")
}
