package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports missing or malformed input, caught before any mutation.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return "invalid input"
	}
	return err.Err.Error()
}

// NotFoundError reports a missing entity (unknown course, student not enrolled, ...).
type NotFoundError struct {
	message string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{message: msg}
}

func (err NotFoundError) Error() string { return err.message }

// ConflictError reports a write that would break a uniqueness or state rule.
type ConflictError struct {
	message string
}

func NewConflictError(msg string) error {
	return &ConflictError{message: msg}
}

func (err ConflictError) Error() string { return err.message }

// TransactionError reports a failure inside a scoped transaction. It is only returned after rollback.
type TransactionError struct {
	Err error
}

func NewTransactionError(err error) error {
	return &TransactionError{Err: err}
}

func (err TransactionError) Error() string {
	if err.Err == nil {
		return "transaction failed"
	}
	return "transaction failed: " + err.Err.Error()
}

func (err TransactionError) Unwrap() error { return err.Err }

// ConnectivityError reports that the persisted store could not be reached. Never retried.
type ConnectivityError struct {
	Err error
}

func NewConnectivityError(err error) error {
	return &ConnectivityError{Err: err}
}

func (err ConnectivityError) Error() string {
	if err.Err == nil {
		return "store unreachable"
	}
	return "store unreachable: " + err.Err.Error()
}

func (err ConnectivityError) Unwrap() error { return err.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsTransaction(err error) bool {
	var target *TransactionError
	return errors.As(err, &target)
}

func IsConnectivity(err error) bool {
	var target *ConnectivityError
	return errors.As(err, &target)
}

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
	var target *shutdown
	return errors.As(err, &target)
}
