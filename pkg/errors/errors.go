package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common application errors
var (
	// ErrNoActiveSession is returned when an operation requires a logged-in
	// user and none is present.
	ErrNoActiveSession = errors.New("no active session")

	// ErrInvalidCredentials is returned by the auth collaborator when no
	// account matches the supplied email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailExists is returned by signup when the email is already
	// registered.
	ErrEmailExists = errors.New("email already exists")
)

// NotFoundError represents a lookup that found no record, including the case
// where the record exists but belongs to a different user's partition.
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFound creates a new not found error.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: id=%s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ValidationError represents a failed draft validation. Fields maps each
// invalid field to its messages in rule order; an empty map means valid.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates an empty validation error ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Add appends a message to the given field.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		parts = append(parts, strings.Join(e.Fields[field], ", "))
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InternalError represents an unexpected failure with context.
type InternalError struct {
	Message string
	Err     error
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, err error) *InternalError {
	return &InternalError{Message: message, Err: err}
}

// Error implements the error interface
func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *InternalError) Unwrap() error {
	return e.Err
}
