package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies failures raised inside a node.
type ErrorKind int

const (
	// KindUnknown is any error that was not classified; it is retried.
	KindUnknown ErrorKind = iota
	// KindProvider is a transient failure from the LLM gateway.
	KindProvider
	// KindParse means a response did not match the expected structure.
	KindParse
	// KindValidation means a response parsed but broke a pipeline invariant.
	KindValidation
	// KindFatal stops retrying immediately.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindProvider:
		return "provider"
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// StageError attaches an ErrorKind to an underlying error.
type StageError struct {
	Kind ErrorKind
	Err  error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " error"
	}
	return e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

func wrapKind(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Kind: kind, Err: err}
}

// ProviderError marks err as a transient gateway failure.
func ProviderError(err error) error { return wrapKind(KindProvider, err) }

// ParseError marks err as an unparseable response.
func ParseError(err error) error { return wrapKind(KindParse, err) }

// ValidationError marks err as an invariant violation in a parsed response.
func ValidationError(err error) error { return wrapKind(KindValidation, err) }

// Permanent marks err so the retry driver gives up at once.
func Permanent(err error) error { return wrapKind(KindFatal, err) }

// Parsef is shorthand for ParseError(fmt.Errorf(...)).
func Parsef(format string, args ...any) error {
	return ParseError(fmt.Errorf(format, args...))
}

// Validationf is shorthand for ValidationError(fmt.Errorf(...)).
func Validationf(format string, args ...any) error {
	return ValidationError(fmt.Errorf(format, args...))
}

// KindOf returns the outermost ErrorKind attached to err.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether another exec attempt may succeed.
// Context cancellation and KindFatal errors are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return KindOf(err) != KindFatal
}

// FatalError is the only error a Flow surfaces. It names the node that
// failed and carries the last underlying error.
type FatalError struct {
	Node     string
	Attempts int
	Err      error
}

func (e *FatalError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Node, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Node, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatal(node string, attempts int, err error) *FatalError {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe
	}
	return &FatalError{Node: node, Attempts: attempts, Err: err}
}
