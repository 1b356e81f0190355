package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies adapter failures. All of them are retryable by the
// caller and none of them mutate engine state.
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	ErrAuth
	ErrRateLimited
	ErrTimeout
	ErrTransport
)

func (k ErrorKind) String() string {
	switch k {
	case ErrAuth:
		return "auth"
	case ErrRateLimited:
		return "rate_limited"
	case ErrTimeout:
		return "timeout"
	case ErrTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// AdapterError wraps a backend failure with its classification.
type AdapterError struct {
	Kind ErrorKind
	Err  error
}

func (e *AdapterError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("backend failure (%s)", e.Kind)
	}
	return fmt.Sprintf("backend failure (%s): %v", e.Kind, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an AdapterError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *AdapterError
	return errors.As(err, &ae) && ae.Kind == kind
}
