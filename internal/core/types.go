package core

import "time"

// Action represents the result of a node execution that determines flow control.
type Action string

// Common actions used throughout the framework.
const (
	ActionDefault Action = "default"
	ActionEnd     Action = "end"
	ActionFailure Action = "failure"
)

// RetryPolicy declares how often a node's exec phase is attempted.
//
// MaxAttempts counts every call, including the first one. A policy with
// MaxAttempts = 3 calls Exec at most three times before the fallback runs.
type RetryPolicy struct {
	MaxAttempts int
	Wait        time.Duration
}

// NoRetry runs exec exactly once.
var NoRetry = RetryPolicy{MaxAttempts: 1}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Wait < 0 {
		p.Wait = 0
	}
	return p
}

// Attempt describes the exec call currently being made.
// Errors holds the failures of all earlier attempts, oldest first.
type Attempt struct {
	Number int
	Errors []error
}

// First reports whether this is the initial attempt.
func (a Attempt) First() bool { return a.Number <= 1 }

// LastErr returns the error of the previous attempt, or nil.
func (a Attempt) LastErr() error {
	if len(a.Errors) == 0 {
		return nil
	}
	return a.Errors[len(a.Errors)-1]
}

// CountKind returns how many earlier attempts failed with the given kind.
func (a Attempt) CountKind(kind ErrorKind) int {
	n := 0
	for _, err := range a.Errors {
		if KindOf(err) == kind {
			n++
		}
	}
	return n
}
