package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoModelSelected indicates a facade call before any model was selected
	ErrNoModelSelected = errors.New("no model selected")
	// ErrModelNotFound indicates the requested model is not registered
	ErrModelNotFound = errors.New("model not found")
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrRevisionConflict indicates a document save against a stale revision
	ErrRevisionConflict = errors.New("document revision conflict")
	// ErrModelChanged indicates the active model was swapped while a call was in flight
	ErrModelChanged = errors.New("model changed during operation")
)

// ValidationError is a local, pre-network input rejection (bad file type,
// oversized upload). Recoverable by fixing the input and retrying.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// MissingColumnsError reports every required column that could not be fuzzy
// matched against the uploaded table's headers.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ServiceUnavailableError means the LLM host could not be reached at all.
// Distinct from ModelNotAvailableError so the user can tell "start the
// service" apart from "pull the model".
type ServiceUnavailableError struct {
	BaseURL string
	Err     error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("llm service unreachable at %s: %v", e.BaseURL, e.Err)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Err }

// ModelNotAvailableError means the service answered but the named model is
// not installed on it.
type ModelNotAvailableError struct {
	Model string
}

func (e *ModelNotAvailableError) Error() string {
	return fmt.Sprintf("model %s is not installed on the llm service", e.Model)
}

// MalformedResponseError means the model replied but the reply could not be
// decoded as the structure the operation required. Extraction-class callers
// recover from this locally; generation-class callers surface it.
type MalformedResponseError struct {
	Op  string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed model response: %v", e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// OperationError identifies which backend operation failed at the network or
// envelope level. Network failures are never swallowed anonymously.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
