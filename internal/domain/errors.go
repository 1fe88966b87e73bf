package domain

import (
	"context"
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindUnauthorized
	KindTimeout
	KindNotConfigured
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "upstream_unauthorized"
	case KindTimeout:
		return "upstream_timeout"
	case KindNotConfigured:
		return "not_configured"
	default:
		return "upstream_error"
	}
}

var (
	ErrUnauthorized  = errors.New("upstream rejected credentials or scope")
	ErrTimeout       = errors.New("upstream call timed out")
	ErrNotConfigured = errors.New("upstream not configured")
)

// UpstreamError is a failure reported by one of the external systems.
// errors.Is matches it against the sentinel of its kind.
type UpstreamError struct {
	Source string
	Op     string
	Status int
	Kind   ErrorKind
	Err    error
}

func (e *UpstreamError) Error() string {
	msg := e.Source + " " + e.Op
	if e.Status != 0 {
		msg += fmt.Sprintf(" status=%d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrNotConfigured:
		return e.Kind == KindNotConfigured
	}
	return false
}

// KindOf reports the kind of the first UpstreamError in err's chain.
func KindOf(err error) ErrorKind {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindGeneric
}

// StatusKind classifies an HTTP status returned by an upstream API.
func StatusKind(status int) ErrorKind {
	if status == 401 || status == 403 {
		return KindUnauthorized
	}
	if status == 408 || status == 504 {
		return KindTimeout
	}
	return KindGeneric
}
