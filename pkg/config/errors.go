package config

import (
	"errors"
	"fmt"
)

// Common errors for scenario loading.
var (
	ErrFileNotFound     = errors.New("scenario file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidJSON      = errors.New("invalid JSON syntax")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("scenario file is empty")
	ErrInvalidScenario  = errors.New("invalid scenario")
)

// ValidationError describes one invalid field. Field is a path such as
// "routes[0].responses[1].status".
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// Is reports ErrInvalidScenario so callers can test any validation failure.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidScenario
}

// ValidationErrors returns every ValidationError joined into err.
func ValidationErrors(err error) []*ValidationError {
	var out []*ValidationError
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if ve, ok := err.(*ValidationError); ok {
			out = append(out, ve)
			return
		}
		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return out
}

type problems []error

func (p *problems) add(field, format string, args ...any) {
	*p = append(*p, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (p problems) err() error {
	return errors.Join(p...)
}
