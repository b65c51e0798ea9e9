// Package errors provides the error types shared across the module.
//
// It is a thin layer over github.com/cockroachdb/errors: sentinel values for
// the common failure classes, a handful of typed errors that carry the
// operation name, and re-exports of the wrapping helpers so callers only need
// a single import.
//
// Typed errors compose with the standard library:
//
//	err := errors.NewModelError("Checkpoint.Decode", "bad weights", errors.ErrNonFinite)
//	errors.Is(err, errors.ErrNonFinite) // true
//
//	var ve *errors.ValueError
//	errors.As(err, &ve)
//
// The half-life model itself never returns errors. Errors appear at the
// checkpoint, storage, configuration and HTTP boundaries.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors.
var (
	// ErrEmptyData is returned when an operation receives no samples.
	ErrEmptyData = errors.New("empty data")
	// ErrInvalidInput is returned for malformed arguments.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNonFinite is returned when a value is NaN or infinite.
	ErrNonFinite = errors.New("non-finite value")
	// ErrDimensionMismatch is returned when paired inputs differ in length.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrUnsupportedFormat is returned when a serialized document has an unknown format.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
)

// Re-exports so callers do not need a second errors import.
var (
	New    = errors.New
	Newf   = errors.Newf
	Wrap   = errors.Wrap
	Wrapf  = errors.Wrapf
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// ValueError reports an argument with an invalid value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Is makes every ValueError match ErrInvalidInput.
func (e *ValueError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValueError creates a ValueError.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// DimensionError reports paired inputs of different lengths.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: dimension mismatch on axis %d: expected %d, got %d",
		e.Op, e.Axis, e.Expected, e.Got)
}

// Unwrap returns ErrDimensionMismatch.
func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}

// NewDimensionError creates a DimensionError.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ModelError wraps a lower level cause with the failing operation.
type ModelError struct {
	Op      string
	Message string
	Err     error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError.
func NewModelError(op, message string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Message: message, Err: err})
}

// ValidationError reports a field that failed validation.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// Is makes every ValidationError match ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string, value interface{}) error {
	return errors.WithStack(&ValidationError{Field: field, Message: message, Value: value})
}

// Recover converts a panic in the calling function into an error assigned to
// *err. Use it as the first deferred call of a public entry point:
//
//	func (s *Store) Save(...) (err error) {
//		defer errors.Recover(&err, "Store.Save")
//		...
//	}
func Recover(err *error, op string) {
	r := recover()
	if r == nil {
		return
	}
	var cause error
	switch v := r.(type) {
	case error:
		cause = v
	default:
		cause = errors.Newf("%v", v)
	}
	*err = errors.WithStack(&ModelError{Op: op, Message: "panic recovered", Err: cause})
}
