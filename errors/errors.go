package errors

import (
	"fmt"

	gerrors "github.com/pkg/errors"
)

type ErrorCode int

const (
	InternalError ErrorCode = iota
	InvalidConfiguration
	UnsupportedPredicate
	UnknownColumn
	InvalidRange
	BufferExhaustion
	StorageError
	ValueOutOfRange
	ScanInterrupted
)

func NewInternalError(msg string) GridError {
	return NewGridErrorf(InternalError, "Internal error: %s", msg)
}

func NewInvalidConfigurationError(msg string) GridError {
	return NewGridErrorf(InvalidConfiguration, "Invalid configuration: %s", msg)
}

// NewUnsupportedPredicateError is returned when a predicate form cannot be
// translated into coordinate ranges. The caller should keep the predicate as a
// residual filter rather than failing the scan.
func NewUnsupportedPredicateError(kind string) GridError {
	return NewGridErrorf(UnsupportedPredicate, "Unsupported predicate type %s", kind)
}

// NewUnknownColumnError is returned when a predicate references a column that
// is neither a dimension nor an attribute of the array.
func NewUnknownColumnError(columnName string) GridError {
	return NewGridErrorf(UnknownColumn, "Unknown column: %s", columnName)
}

// NewInvalidRangeError indicates a bug in the merge logic - it is raised when
// a merge is attempted on ranges that are disjoint and non-contiguous.
func NewInvalidRangeError(msg string) GridError {
	return NewGridErrorf(InvalidRange, "Invalid range: %s", msg)
}

// NewBufferExhaustionError is fatal for the current partition: either there is
// not enough free memory to safely double the read buffers, or reallocation is
// disabled while a record still does not fit.
func NewBufferExhaustionError(msg string) GridError {
	return NewGridErrorf(BufferExhaustion, "Buffer exhaustion: %s", msg)
}

func NewStorageError(msg string) GridError {
	return NewGridErrorf(StorageError, "Storage engine error: %s", msg)
}

// NewScanInterruptedError reports cooperative cancellation of a partition
// scan. It is surfaced rather than swallowed so an interrupted partition can
// never be mistaken for a completed one.
func NewScanInterruptedError(partitionID string) GridError {
	return NewGridErrorf(ScanInterrupted, "Partition scan %s interrupted", partitionID)
}

func NewValueOutOfRangeError(msg string) GridError {
	return NewGridErrorf(ValueOutOfRange, "Value out of range. %s", msg)
}

func NewGridErrorf(errorCode ErrorCode, msgFormat string, args ...interface{}) GridError {
	msg := fmt.Sprintf(fmt.Sprintf("GSC%04d - %s", errorCode, msgFormat), args...)
	return GridError{Code: errorCode, Msg: msg}
}

func NewGridError(errorCode ErrorCode, msg string) GridError {
	return GridError{Code: errorCode, Msg: msg}
}

// GridError is any kind of error that is exposed to the host engine via the
// public planning and scanning APIs
type GridError struct {
	Code ErrorCode
	Msg  string
}

func (u GridError) Error() string {
	return u.Msg
}

// HasCode returns true if err is a GridError carrying the given code, however
// deeply it is wrapped.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if ge, ok := err.(GridError); ok {
			return ge.Code == code
		}
		err = gerrors.Unwrap(err)
	}
	return false
}

func MaybeAddStack(err error) error {
	_, ok := err.(GridError)
	if !ok {
		return gerrors.WithStack(err)
	}
	return err
}

func New(msg string) error {
	return gerrors.New(msg)
}

func Errorf(format string, args ...interface{}) error {
	return gerrors.Errorf(format, args...)
}

func Wrapf(err error, format string, args ...interface{}) error {
	return gerrors.Wrapf(err, format, args...)
}

func WithStack(err error) error {
	return gerrors.WithStack(err)
}

func Is(err, target error) bool {
	return gerrors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return gerrors.As(err, target)
}
