package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// RecoverableError is implemented by errors that know whether another
// attempt could succeed.
type RecoverableError interface {
	error
	IsRecoverable() bool
}

// IsRecoverable reports whether Do should try again after err. Errors that
// classify themselves win; otherwise timeouts and dropped or refused
// connections are recoverable and everything else is not.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var classified RecoverableError
	if errors.As(err, &classified) {
		return classified.IsRecoverable()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// TransientError marks a failure expected to clear up on its own, such as a
// connection closed before a response arrived.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string       { return e.Err.Error() }
func (e *TransientError) Unwrap() error       { return e.Err }
func (e *TransientError) IsRecoverable() bool { return true }

// Transient marks err as recoverable. Cancellation is never marked, so a
// cancelled caller is not retried.
func Transient(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	return &TransientError{Err: err}
}

// PermanentError marks a failure that no retry can fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string       { return e.Err.Error() }
func (e *PermanentError) Unwrap() error       { return e.Err }
func (e *PermanentError) IsRecoverable() bool { return false }

// Permanent marks err as not recoverable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// StatusError reports an unexpected HTTP response status. Throttling and
// server errors are recoverable, everything else is not.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected response status: %s", e.Status)
	}
	return fmt.Sprintf("unexpected response status: %d", e.Code)
}

func (e *StatusError) IsRecoverable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}
