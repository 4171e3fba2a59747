package domain

import (
	"errors"
	"fmt"
)

// ErrorKind tags a collection failure so callers can switch on the tag
// instead of on concrete error types.
type ErrorKind int

const (
	// KindTransient marks a failure worth retrying locally.
	KindTransient ErrorKind = iota
	// KindSessionExpired marks a lapsed login session. Never retried:
	// it requires human remediation and must be surfaced and alerted.
	KindSessionExpired
	// KindTerminal marks a failure raised after the retry budget is
	// exhausted, wrapping the last attempt's error.
	KindTerminal
)

func (k ErrorKind) String() string {
	switch k {
	case KindSessionExpired:
		return "session-expired"
	case KindTerminal:
		return "terminal"
	default:
		return "transient"
	}
}

// CollectError is a tagged failure from a source's collection cycle.
type CollectError struct {
	Kind   ErrorKind
	Source string
	Err    error
}

func (e *CollectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s collection: %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s collection error", e.Source, e.Kind)
}

func (e *CollectError) Unwrap() error { return e.Err }

// NewSessionExpired builds the session-expired error for a source.
func NewSessionExpired(source string) *CollectError {
	return &CollectError{
		Kind:   KindSessionExpired,
		Source: source,
		Err:    fmt.Errorf("login session expired, manual re-login required"),
	}
}

// NewTerminal wraps the last failure after all retry attempts were spent.
func NewTerminal(source string, attempts int, last error) *CollectError {
	return &CollectError{
		Kind:   KindTerminal,
		Source: source,
		Err:    fmt.Errorf("%d attempts failed: %w", attempts, last),
	}
}

// KindOf extracts the collection error kind. Errors that are not
// CollectErrors are treated as transient.
func KindOf(err error) ErrorKind {
	var ce *CollectError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransient
}

// IsSessionExpired reports whether err carries the session-expired tag.
func IsSessionExpired(err error) bool {
	var ce *CollectError
	return errors.As(err, &ce) && ce.Kind == KindSessionExpired
}
