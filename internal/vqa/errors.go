package vqa

import (
	"errors"
	"fmt"
)

// ErrorKind classifies core errors. DimensionMismatch is always a caller
// bug and is never retried; BackendEvaluation surfaces backend failures
// whose retry policy belongs to the backend collaborator.
type ErrorKind string

const (
	KindUnknown           ErrorKind = "unknown"
	KindDimensionMismatch ErrorKind = "dimension_mismatch"
	KindBackendEvaluation ErrorKind = "backend_evaluation"
	KindCancelled         ErrorKind = "cancelled"
)

// Error is a core error with enough context to reproduce the failing
// evaluation: the operation, the offending parameters, and the iteration
// index when the failure happened inside a run.
type Error struct {
	Kind       ErrorKind
	Op         string
	Message    string
	Parameters Parameters
	Iteration  int
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithIteration records the iteration index the error occurred at.
func (e *Error) WithIteration(i int) *Error {
	e.Iteration = i
	return e
}

// NewDimensionMismatch builds the contract-violation error for a parameter
// vector of the wrong length.
func NewDimensionMismatch(op string, want, got int) *Error {
	return &Error{
		Kind:    KindDimensionMismatch,
		Op:      op,
		Message: fmt.Sprintf("expected %d parameters, got %d", want, got),
	}
}

// WrapBackend wraps a backend or estimator failure, preserving the
// parameters that triggered it. Returns nil if err is nil.
func WrapBackend(op string, p Parameters, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:       KindBackendEvaluation,
		Op:         op,
		Message:    "circuit evaluation failed",
		Parameters: p.Clone(),
		Err:        err,
	}
}

// WrapCancelled wraps a context cancellation observed between iterations.
func WrapCancelled(op string, err error) *Error {
	return &Error{
		Kind:    KindCancelled,
		Op:      op,
		Message: "run cancelled",
		Err:     err,
	}
}

// IsKind reports whether err is (or wraps) a core error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
