package pipeshell

import (
	"errors"
	"fmt"
)

// Error type constants used in failure envelopes.
const (
	// ErrorTypeParse indicates malformed pipeline syntax. Nothing was executed.
	ErrorTypeParse = "parse_error"

	// ErrorTypeRuntime covers everything that goes wrong after parsing: an
	// unknown command, a command's own failure, or an undecodable resume token.
	ErrorTypeRuntime = "runtime_error"
)

// Process exit codes for failed invocations.
const (
	ExitRuntimeError = 1
	ExitParseError   = 2
)

// ErrUnknownCommand is wrapped by the error returned when a stage names a
// command missing from the registry.
var ErrUnknownCommand = errors.New("unknown command")

// ParseError reports malformed pipeline text.
type ParseError struct {
	Pos     int    `json:"pos"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Message)
	}
	return fmt.Sprintf("parse error at offset %d near %q: %s", e.Pos, e.Token, e.Message)
}

// StageError is a runtime failure attributed to one stage of a pipeline.
// It wraps the command's own error so errors.Is and errors.As still reach it.
type StageError struct {
	Index   int
	Command string
	Err     error
}

// Error implements the error interface
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s): %v", e.Index, e.Command, e.Err)
}

// Unwrap implements the error unwrapping interface for Go's errors.Is and errors.As
func (e *StageError) Unwrap() error {
	return e.Err
}

// TokenError reports a resume token that is missing, corrupt, or of an
// unrecognized version.
type TokenError struct {
	Reason  string
	Wrapped error
}

// Error implements the error interface
func (e *TokenError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("invalid resume token: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("invalid resume token: %s", e.Reason)
}

// Unwrap implements the error unwrapping interface for Go's errors.Is and errors.As
func (e *TokenError) Unwrap() error {
	return e.Wrapped
}

func tokenError(reason string, err error) *TokenError {
	return &TokenError{Reason: reason, Wrapped: err}
}

// UsageError reports a malformed command line, such as an unknown flag or a
// missing required value. Like a ParseError it is raised before anything
// runs, and it is classified the same way.
type UsageError struct {
	Err error
}

// Error implements the error interface
func (e *UsageError) Error() string {
	return e.Err.Error()
}

// Unwrap implements the error unwrapping interface for Go's errors.Is and errors.As
func (e *UsageError) Unwrap() error {
	return e.Err
}

// ErrorOutput is the machine-readable form of a failure.
type ErrorOutput struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ClassifyError maps any error onto the failure taxonomy. Parse and usage
// errors are parse errors; everything else is a runtime error.
func ClassifyError(err error) ErrorOutput {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return ErrorOutput{Type: ErrorTypeParse, Message: parseErr.Error()}
	}
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ErrorOutput{Type: ErrorTypeParse, Message: usageErr.Error()}
	}
	return ErrorOutput{Type: ErrorTypeRuntime, Message: err.Error()}
}

// ExitCode returns the process exit code for err. A nil error is success.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ClassifyError(err).Type == ErrorTypeParse {
		return ExitParseError
	}
	return ExitRuntimeError
}

// stageError wraps err for stage index unless it already carries a stage, in
// which case the innermost attribution wins.
func stageError(index int, command string, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Index: index, Command: command, Err: err}
}
