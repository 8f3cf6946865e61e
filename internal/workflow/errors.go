package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers missing documents and workflow definitions, and
	// documents that are not in the state a transition requires.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when the supplied doc_version does not
	// match the stored one. Every transition checks and increments the
	// version, so concurrent approvals on one document are serialized.
	ErrVersionConflict = errors.New("document version conflict")
)

// ConfigurationError means the document references a stage that is absent
// from its own workflow definition. This is upstream data corruption, not
// user error, and must abort the transition before anything is written.
type ConfigurationError struct {
	Stage string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("stage %q not found in workflow definition", e.Stage)
}

// ValidationError rejects caller-supplied input before any write: unknown
// line IDs, missing line outcomes, or an invalid send-back target stage.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// DependencyError wraps a failed call to an external collaborator (catalog,
// directory, persistence, numbering). The transition aborts with nothing
// written and the caller may retry.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}
