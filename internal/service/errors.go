package service

import (
	"errors"
	"fmt"
)

var (
	ErrSurveyNotFound    = errors.New("survey not found")
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateInFlight = errors.New("an identical submission is still being processed")
)

// ValidationError carries a client-facing message and matches ErrValidation
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
