package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnauthenticated   = errors.New("user not authenticated")
	ErrForbidden         = errors.New("permission denied")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRateLimited       = errors.New("too many requests")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NotFoundError ties a missing resource to ErrNotFound.
type NotFoundError struct {
	Resource string
}

func (err NotFoundError) Error() string { return err.Resource + " not found" }
func (err NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// TransitionError is returned when a status guard is violated.
type TransitionError struct {
	From   string
	To     string
	Reason string
}

func (err TransitionError) Error() string {
	msg := fmt.Sprintf("cannot move from %q to %q", err.From, err.To)
	if err.Reason != "" {
		msg += ": " + err.Reason
	}
	return msg
}

func (err TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// DependencyError wraps a failure of the store or of the notification sender.
type DependencyError struct {
	Dependency string
	Err        error
}

func NewDependencyError(dependency string, err error) error {
	return &DependencyError{Dependency: dependency, Err: err}
}

func (err DependencyError) Error() string {
	return err.Dependency + ": " + err.Err.Error()
}

func (err DependencyError) Unwrap() error { return err.Err }
func (err DependencyError) Cause() error  { return err.Err }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	var s *shutdown
	return errors.As(err, &s)
}
