package pipeshell

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
)

// ProtocolVersion is stamped on every tool mode envelope.
const ProtocolVersion = 1

// Envelope statuses
const (
	StatusOK            = "ok"
	StatusNeedsApproval = "needs_approval"
	StatusCancelled     = "cancelled"
)

// Envelope is the single JSON object written to stdout in tool mode.
type Envelope struct {
	ProtocolVersion  int              `json:"protocolVersion"`
	OK               bool             `json:"ok"`
	Status           string           `json:"status,omitempty"`
	Output           []Item           `json:"output,omitzero"`
	RequiresApproval *ApprovalPending `json:"requiresApproval,omitempty"`
	Error            *ErrorOutput     `json:"error,omitempty"`
}

// ApprovalPending describes a halted run waiting for a decision.
type ApprovalPending struct {
	Type        string `json:"type"`
	Prompt      string `json:"prompt"`
	Items       []Item `json:"items"`
	ResumeToken string `json:"resumeToken"`
}

// Presenter turns run outcomes into the one artifact a mode emits. Each
// method writes its output and returns the process exit code.
type Presenter struct {
	Mode   Mode
	Stdout io.Writer
	Stderr io.Writer
	Codec  *TokenCodec

	// Program is used in the human mode resume hint.
	Program string
}

func (p *Presenter) program() string {
	if p.Program == "" {
		return "pipeshell"
	}
	return p.Program
}

// Result presents a completed or halted run.
func (p *Presenter) Result(res *RunResult) int {
	if res == nil {
		res = &RunResult{}
	}
	if res.Halted {
		return p.halted(res)
	}
	items := res.Items
	if items == nil {
		items = []Item{}
	}
	if p.Mode == ModeTool {
		return p.envelope(&Envelope{OK: true, Status: StatusOK, Output: items})
	}
	if res.Rendered {
		return 0
	}
	if err := writeItems(p.Stdout, items); err != nil {
		return p.Fail(err)
	}
	return 0
}

func (p *Presenter) halted(res *RunResult) int {
	req, ok := res.ApprovalRequest()
	if !ok || res.Continuation == nil {
		return p.Fail(fmt.Errorf("halted run has no approval request"))
	}
	if p.Codec == nil {
		return p.Fail(fmt.Errorf("no token codec configured"))
	}
	token, err := p.Codec.Encode(res.Continuation)
	if err != nil {
		return p.Fail(err)
	}
	items := req.Items
	if items == nil {
		items = []Item{}
	}
	if p.Mode == ModeTool {
		return p.envelope(&Envelope{
			OK:     true,
			Status: StatusNeedsApproval,
			Output: []Item{},
			RequiresApproval: &ApprovalPending{
				Type:        ApprovalRequestType,
				Prompt:      req.Prompt,
				Items:       items,
				ResumeToken: token,
			},
		})
	}
	bold := color.New(color.FgYellow, color.Bold)
	bold.Fprintf(p.Stderr, "approval required: ")
	fmt.Fprintln(p.Stderr, req.Prompt)
	fmt.Fprintf(p.Stderr, "  %d item(s) pending\n", len(items))
	fmt.Fprintf(p.Stderr, "  resume with: %s resume --approve yes --token %s\n", p.program(), token)
	return 0
}

// Cancelled presents a resume that was not approved.
func (p *Presenter) Cancelled() int {
	if p.Mode == ModeTool {
		return p.envelope(&Envelope{OK: true, Status: StatusCancelled, Output: []Item{}})
	}
	color.New(color.FgYellow).Fprintln(p.Stderr, "cancelled")
	return 0
}

// Fail presents an error and returns its exit code.
func (p *Presenter) Fail(err error) int {
	out := ClassifyError(err)
	code := ExitCode(err)
	if p.Mode == ModeTool {
		if writeErr := p.writeEnvelope(&Envelope{OK: false, Error: &out}); writeErr != nil {
			return ExitRuntimeError
		}
		return code
	}
	color.New(color.FgRed, color.Bold).Fprint(p.Stderr, "error: ")
	fmt.Fprintln(p.Stderr, out.Message)
	return code
}

func (p *Presenter) envelope(env *Envelope) int {
	data, err := marshalEnvelope(env)
	if err != nil {
		// Nothing was written yet, so the failure envelope is still the only one.
		return p.Fail(err)
	}
	if _, err := p.Stdout.Write(data); err != nil {
		return ExitRuntimeError
	}
	return 0
}

// writeEnvelope marshals fully before writing so a failure never leaves a
// partial object on stdout.
func (p *Presenter) writeEnvelope(env *Envelope) error {
	data, err := marshalEnvelope(env)
	if err != nil {
		return err
	}
	_, err = p.Stdout.Write(data)
	return err
}

func marshalEnvelope(env *Envelope) ([]byte, error) {
	env.ProtocolVersion = ProtocolVersion
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return append(data, '\n'), nil
}

// writeItems prints one item per line: strings verbatim, everything else as
// indented JSON.
func writeItems(w io.Writer, items []Item) error {
	var buf bytes.Buffer
	for _, item := range items {
		if s, ok := item.(string); ok {
			buf.WriteString(s)
			buf.WriteByte('\n')
			continue
		}
		data, err := json.MarshalIndent(item, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format item: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	_, err := w.Write(buf.Bytes())
	return err
}
