package contacts

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an adapter failure for the retry layer.
type ErrorKind string

const (
	// KindTransient covers network timeouts, rate limits and 5xx-class
	// failures. Safe to retry with backoff.
	KindTransient ErrorKind = "transient"
	// KindPermanent covers not-found, malformed payloads and auth failures.
	// Never retried.
	KindPermanent ErrorKind = "permanent"
)

// Error is a classified adapter failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable adapter failure.
func Transient(op string, err error) error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// Permanent wraps err as a non-retryable adapter failure.
func Permanent(op string, err error) error {
	return &Error{Kind: KindPermanent, Op: op, Err: err}
}

// IsTransient reports whether err is a retryable adapter failure.
func IsTransient(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == KindTransient
	}
	return false
}

// IsPermanent reports whether err is a non-retryable adapter failure.
func IsPermanent(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == KindPermanent
	}
	return false
}
