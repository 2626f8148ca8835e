package memory

import "fmt"

// ValidationError reports a caller-supplied argument that failed
// validation. It is the only error class raised for bad input; everything
// else degrades to logged best-effort behavior or boolean results.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
