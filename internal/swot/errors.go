package swot

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks rejected input (bad index, wrong strategy domain, unknown item).
	ErrValidation = errors.New("validation failed")
	// ErrCapacity marks an insert past a capped quadrant.
	ErrCapacity = errors.New("quadrant capacity reached")
	// ErrInconsistentGrid marks a grid whose cells disagree with its item lists.
	ErrInconsistentGrid = errors.New("inconsistent grid")
)

type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type CapacityError struct {
	Quadrant Quadrant
	Cap      int
}

func (e *CapacityError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s already holds %d items", e.Quadrant, e.Cap)
}

func (e *CapacityError) Unwrap() error { return ErrCapacity }

// InconsistentGridError is never returned across the package boundary.
// Grids are healed on read and the error is only logged.
type InconsistentGridError struct {
	Kind     GridKind
	Rows     int
	Cols     int
	CellRows int
	CellCols []int
}

func (e *InconsistentGridError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s grid has %d cell rows (col widths %v) for %dx%d items", e.Kind, e.CellRows, e.CellCols, e.Rows, e.Cols)
}

func (e *InconsistentGridError) Unwrap() error { return ErrInconsistentGrid }

func indexError(field string, index, length int) error {
	return &ValidationError{
		Field:  field,
		Value:  fmt.Sprint(index),
		Reason: fmt.Sprintf("index out of range [0,%d)", length),
	}
}
