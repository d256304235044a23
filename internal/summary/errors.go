package summary

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by this package wraps exactly one of
// them, so callers can branch with errors.Is.
var (
	ErrConfiguration        = errors.New("configuration error")
	ErrDataAccess           = errors.New("data access error")
	ErrInconsistentSnapshot = errors.New("inconsistent snapshot")
)

// Error carries the kind of failure, the operation that failed and the cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func configError(op, format string, args ...any) error {
	return &Error{Kind: ErrConfiguration, Op: op, Err: fmt.Errorf(format, args...)}
}

func dataError(op string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: ErrDataAccess, Op: op, Err: err}
}

func inconsistentError(op, format string, args ...any) error {
	return &Error{Kind: ErrInconsistentSnapshot, Op: op, Err: fmt.Errorf(format, args...)}
}
