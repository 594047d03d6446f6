package router

import (
	"errors"
	"fmt"
)

// ErrMissingTarget is returned when a navigation request names no module.
var ErrMissingTarget = errors.New("navigation target missing")

// ErrRetrieval is wrapped by every [*RetrievalError].
var ErrRetrieval = errors.New("fragment retrieval failed")

// RetrievalError reports a failed fragment load. Status is the HTTP status
// code for a non-2xx response and zero for transport faults.
type RetrievalError struct {
	Module string
	Status int
	Err    error
}

func (e *RetrievalError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("retrieve module %s: status %d", e.Module, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("retrieve module %s: %v", e.Module, e.Err)
	default:
		return fmt.Sprintf("retrieve module %s: failed", e.Module)
	}
}

func (e *RetrievalError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRetrieval}
	}
	return []error{ErrRetrieval, e.Err}
}

func asRetrievalError(module string, err error) *RetrievalError {
	var re *RetrievalError
	if errors.As(err, &re) {
		return re
	}
	return &RetrievalError{Module: module, Err: err}
}
