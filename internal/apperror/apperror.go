// Package apperror defines the error kinds shared across layers.
//
// Lower layers return these (wrapped or not) and the HTTP layer maps them to
// status codes with errors.Is. Anything that is not an *AppError is treated
// as a store fault and becomes a 500.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %d", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// IsStoreFault reports whether err is an unclassified failure, i.e. neither a
// validation error nor a not-found.
func IsStoreFault(err error) bool {
	return err != nil && !errors.Is(err, ErrValidation) && !errors.Is(err, ErrNotFound)
}
