package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrAlreadyExists          = errors.New("already exists")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrUnauthorizedTransition = errors.New("unauthorized transition")
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("version conflict")
	ErrPersistence            = errors.New("persistence failure")
)

// InsufficientStockError names the materials whose stock could not satisfy a reservation.
type InsufficientStockError struct {
	MaterialIDs []string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInsufficientStock, strings.Join(e.MaterialIDs, ", "))
}

// Is reports ErrInsufficientStock as the sentinel of this error.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// PersistenceError wraps a storage fault raised by operation Op.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// Validation formats a message wrapped with ErrValidation.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Persistence wraps storage faults. Domain sentinels and nil pass through untouched.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNotFound, ErrAlreadyExists, ErrConflict, ErrPersistence} {
		if errors.Is(err, known) {
			return err
		}
	}
	return &PersistenceError{Op: op, Err: err}
}
