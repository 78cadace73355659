package faults

import (
	"errors"
	"fmt"
)

// ValidationError indicates bad input. No state was changed.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validation creates a new validation error
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates a referenced entity is missing or unusable.
type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// NotFound creates a new not-found error
func NotFound(entity string, id interface{}) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// PartialWriteError indicates the relational write succeeded but the event
// log append did not. The order is authoritative; the event trail has a gap
// that the reconciliation job closes later.
type PartialWriteError struct {
	OrderID uint
	Cause   error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("order %d committed but event log append failed: %v", e.OrderID, e.Cause)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Cause
}

// DataUnavailableError indicates a datastore was unreachable before any
// write happened. The whole operation was aborted and may be retried.
type DataUnavailableError struct {
	Store string
	Cause error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Store, e.Cause)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Cause
}

// Unavailable creates a new data-unavailable error
func Unavailable(store string, cause error) error {
	return &DataUnavailableError{Store: store, Cause: cause}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsPartialWrite reports whether err is a partial-write error.
func IsPartialWrite(err error) bool {
	var target *PartialWriteError
	return errors.As(err, &target)
}

// IsUnavailable reports whether err is a data-unavailable error.
func IsUnavailable(err error) bool {
	var target *DataUnavailableError
	return errors.As(err, &target)
}
