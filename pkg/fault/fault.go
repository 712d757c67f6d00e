// Package fault classifies adapter errors as transient (worth retrying) or
// fatal (retrying cannot help).
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindFatal Kind = iota
	KindTransient
)

func (k Kind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "fatal"
}

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindTransient, Err: err}
}

func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindFatal, Err: err}
}

func Transientf(format string, args ...any) error {
	return Transient(fmt.Errorf(format, args...))
}

func Fatalf(format string, args ...any) error {
	return Fatal(fmt.Errorf(format, args...))
}

// IsTransient reports whether the outermost classification in err's chain is
// transient.
func IsTransient(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindTransient
}

// IsFatal reports whether err is explicitly classified fatal. Unclassified
// errors are neither.
func IsFatal(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindFatal
}

// FromStatus classifies an HTTP response status: rate limits, request
// timeouts and server errors are transient, any other failure is fatal.
func FromStatus(code int, err error) error {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
		return Transient(err)
	default:
		return Fatal(err)
	}
}
