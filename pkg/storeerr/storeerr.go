// Package storeerr defines the error kinds shared by the seed and settings
// stores and how each maps to a process exit status.
package storeerr

import (
	"errors"
	"fmt"

	"github.com/entrhq/seedbank/pkg/filelock"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate seed")
	ErrCorruptEntry = errors.New("corrupt entry")
	ErrConfig       = errors.New("invalid configuration")

	// ErrLockTimeout is the guard's timeout so errors.Is works on either name.
	ErrLockTimeout = filelock.ErrTimeout
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DuplicateError carries the id of the active seed a candidate repeats.
type DuplicateError struct {
	ExistingID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate of active seed %s", e.ExistingID)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// CorruptEntryError describes a stored record that failed load validation.
type CorruptEntryError struct {
	Path string
	Err  error
}

func (e *CorruptEntryError) Error() string {
	return fmt.Sprintf("corrupt entry %s: %v", e.Path, e.Err)
}

func (e *CorruptEntryError) Unwrap() error { return e.Err }

func (e *CorruptEntryError) Is(target error) bool { return target == ErrCorruptEntry }

// Kind is the stable machine-readable name of an error class.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindDuplicate    Kind = "duplicate"
	KindLockTimeout  Kind = "lock_timeout"
	KindCorruptEntry Kind = "corrupt_entry"
	KindConfig       Kind = "config"
	KindInternal     Kind = "internal"
)

// Exit statuses. Callers branch on these, so they must not be renumbered.
const (
	ExitOK          = 0
	ExitInternal    = 1
	ExitValidation  = 2
	ExitNotFound    = 3
	ExitDuplicate   = 4
	ExitLockTimeout = 5
)

// KindOf classifies err. A nil error has no kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrLockTimeout):
		return KindLockTimeout
	case errors.Is(err, ErrCorruptEntry):
		return KindCorruptEntry
	case errors.Is(err, ErrConfig):
		return KindConfig
	default:
		return KindInternal
	}
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	switch KindOf(err) {
	case "":
		return ExitOK
	case KindValidation:
		return ExitValidation
	case KindNotFound:
		return ExitNotFound
	case KindDuplicate:
		return ExitDuplicate
	case KindLockTimeout:
		return ExitLockTimeout
	default:
		return ExitInternal
	}
}
