package clierr

import (
	"errors"
	"fmt"

	"github.com/ssandy33/ado-pulse/internal/domain"
	"github.com/ssandy33/ado-pulse/internal/period"
)

const (
	CodeFailure      = 1
	CodeUsage        = 2
	CodeUnauthorized = 3
)

type ExitCoder interface {
	error
	ExitCode() int
}

// ExitError is an error that carries an explicit process exit code.
type ExitError struct {
	code  int
	msg   string
	cause error
}

func (e *ExitError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %v", e.msg, e.cause)
}

func (e *ExitError) ExitCode() int { return e.code }

func (e *ExitError) Unwrap() error { return e.cause }

func New(code int, msg string) error {
	return &ExitError{code: normalize(code), msg: msg}
}

func Wrap(code int, msg string, cause error) error {
	if cause == nil {
		return New(code, msg)
	}
	return &ExitError{code: normalize(code), msg: msg, cause: cause}
}

// Classify picks the exit code for a failed report run.
func Classify(msg string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, period.ErrInvalid):
		return Wrap(CodeUsage, msg, err)
	case domain.KindOf(err) == domain.KindUnauthorized:
		return Wrap(CodeUnauthorized, msg, err)
	}
	return Wrap(CodeFailure, msg, err)
}

// ExitCodeOf extracts an exit code from any error, defaulting to 1.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var ec ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return CodeFailure
}

func normalize(code int) int {
	if code <= 0 {
		return CodeFailure
	}
	return code
}
