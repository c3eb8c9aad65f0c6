package directory

import (
	"errors"
	"strings"
)

var (
	ErrNullRequest     = errors.New("request is required")
	ErrNullArgument    = errors.New("argument is required")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrNotFound        = errors.New("not found")
)

// ValidationError is a single field-level rule violation
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

// ValidationErrors collects every violation found on a request, in field order
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ErrInvalidArgument.Error()
	}
	if len(v) == 1 {
		return v[0].Error()
	}
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes each violation so errors.As finds the first *ValidationError
func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// First returns the first violation, or nil
func (v ValidationErrors) First() *ValidationError {
	if len(v) == 0 {
		return nil
	}
	return v[0]
}
