package benchmark

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("invalid benchmark entry")
	// ErrPolarityConflict matches every *PolarityConflictError.
	ErrPolarityConflict = errors.New("metric polarity conflict")
	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("benchmark storage failure")
)

// ValidationError reports a malformed entry. Nothing was mutated.
type ValidationError struct {
	Suite  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("suite %q: invalid entry: %s", e.Suite, e.Reason)
	}
	return fmt.Sprintf("suite %q: invalid entry: %s: %s", e.Suite, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PolarityConflictError reports a metric whose tool contradicts the one already
// recorded for it in the suite.
type PolarityConflictError struct {
	Suite       string
	Metric      string
	Established Polarity
	Got         Polarity
}

func (e *PolarityConflictError) Error() string {
	return fmt.Sprintf("suite %q: metric %q is recorded as %s, entry uses %s",
		e.Suite, e.Metric, e.Established, e.Got)
}

func (e *PolarityConflictError) Is(target error) bool { return target == ErrPolarityConflict }

// StorageError wraps a persistence failure. Callers retry; re-ingesting the same
// entry is a no-op once it has been stored.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
