package api

import (
	"errors"
	"fmt"
)

// ErrBadRequest is the sentinel kind for malformed request input.
var ErrBadRequest = errors.New("bad request")

// NewKind tags a sentinel with the operation that raised it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags a sentinel with the operation and the underlying cause.
func WrapKind(op string, kind, cause error) error {
	return fmt.Errorf("%s: %w: %v", op, kind, cause)
}
