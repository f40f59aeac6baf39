// Package domain contains the quote selection and engagement tracking rules.
// Its errors describe what went wrong for the profile; the HTTP and CLI
// adapters decide how to show them.
package domain

import (
	"errors"
	"fmt"
)

// Error kinds. The typed errors below unwrap to one of these.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("validation failed")
	ErrUnavailable = errors.New("unavailable")
	ErrEmptyCorpus = errors.New("empty corpus")
	ErrStorage     = errors.New("storage failure")
)

// NotFoundError names the missing quote, collection entry or remote resource.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports an operation that cannot run in the current state,
// such as a second corpus reload.
type ConflictError struct {
	Entity string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

func NewConflictError(entity, reason string) error {
	return &ConflictError{Entity: entity, Reason: reason}
}

// ValidationError rejects an input field. Value is kept for logs only.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a validation error including the invalid value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// UnavailableError reports a dependency that cannot answer right now.
type UnavailableError struct {
	Service string
	Reason  string
}

func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("service %q unavailable: %s", e.Service, e.Reason)
	}

	return fmt.Sprintf("service %q unavailable", e.Service)
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// EmptyCorpusError is returned when a quote must be picked from an empty corpus.
type EmptyCorpusError struct {
	DateKey DateKey
}

func (e *EmptyCorpusError) Error() string {
	if e.DateKey != "" {
		return fmt.Sprintf("no quotes available to select for %s", e.DateKey)
	}

	return "no quotes available to select"
}

func (e *EmptyCorpusError) Unwrap() error { return ErrEmptyCorpus }

// NewEmptyCorpusError creates an empty corpus error for the given day.
func NewEmptyCorpusError(day DateKey) error {
	return &EmptyCorpusError{DateKey: day}
}

// StorageOp names the failed storage operation.
type StorageOp string

// Storage operations.
const (
	StorageRead   StorageOp = "read"
	StorageWrite  StorageOp = "write"
	StorageDelete StorageOp = "delete"
)

// StorageError wraps a backend failure for a single key.
type StorageError struct {
	Op  StorageOp
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
	}

	return fmt.Sprintf("storage %s %q failed", e.Op, e.Key)
}

// Unwrap exposes both the sentinel and the backend cause.
func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStorage}
	}

	return []error{ErrStorage, e.Err}
}

// NewStorageReadError creates a storage error for a failed read.
func NewStorageReadError(key string, err error) error {
	return &StorageError{Op: StorageRead, Key: key, Err: err}
}

// NewStorageWriteError creates a storage error for a failed write.
func NewStorageWriteError(key string, err error) error {
	return &StorageError{Op: StorageWrite, Key: key, Err: err}
}

// NewStorageDeleteError creates a storage error for a failed delete.
func NewStorageDeleteError(key string, err error) error {
	return &StorageError{Op: StorageDelete, Key: key, Err: err}
}

// Kind checks, equivalent to errors.Is with the matching sentinel.

func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool    { return errors.Is(err, ErrConflict) }
func IsValidation(err error) bool  { return errors.Is(err, ErrValidation) }
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
func IsEmptyCorpus(err error) bool { return errors.Is(err, ErrEmptyCorpus) }
func IsStorage(err error) bool     { return errors.Is(err, ErrStorage) }
