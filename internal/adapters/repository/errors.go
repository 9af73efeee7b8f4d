package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound         = errors.New("record not found")
	ErrTimeout          = errors.New("persistence timeout")
	ErrStatusRegression = errors.New("validation status cannot move backward")
)
