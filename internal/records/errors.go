package records

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by store operations. Callers map these onto
// HTTP statuses or user-facing messages with errors.Is.
var (
	// ErrValidation marks rejected input: missing required fields,
	// unknown field names, inverted range bounds.
	ErrValidation = errors.New("validation failed")

	// ErrParse marks an unparseable bulk-import source. The batch is
	// rejected whole and nothing is inserted.
	ErrParse = errors.New("parse failed")

	// ErrAccessDenied marks a role check failure on a gated operation.
	ErrAccessDenied = errors.New("access denied")

	// ErrUnknownCollection marks a collection id outside the fixed set.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrNotFound marks a lookup for a record id that does not exist.
	ErrNotFound = errors.New("record not found")
)

// PersistError reports a failed durable write. The in-memory collection is
// left exactly as it was before the operation.
type PersistError struct {
	Collection Collection
	Path       string
	Err        error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist collection %s to %s: %v", e.Collection, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// validationErrorf wraps ErrValidation with a human-readable detail message.
func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// parseErrorf wraps ErrParse with the underlying decoder error.
func parseErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}
