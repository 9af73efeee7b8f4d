package validate

import (
	"errors"
	"fmt"
)

// ErrValidation is the sentinel kind for all payload rejections. Callers
// use errors.Is against it; the concrete error names the offending field.
var ErrValidation = errors.New("validation failed")

// FieldError rejects a payload because of a single named field. It is
// terminal: validation errors are never retried.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any FieldError.
func (e *FieldError) Is(target error) bool {
	return target == ErrValidation
}

func fieldErr(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
