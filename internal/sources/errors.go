package sources

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is(err, ErrFetch) and friends to classify a failure.
var (
	// ErrFetch means the HTTP request failed or returned a non-2xx status
	ErrFetch = errors.New("FetchError")

	// ErrLinkNotFound means no anchor with the configured link text was found
	ErrLinkNotFound = errors.New("LinkNotFoundError")

	// ErrAmbiguousMatch means zero or several archive members (or links) matched
	ErrAmbiguousMatch = errors.New("AmbiguousMatchError")

	// ErrFormat means the payload could not be decoded as the declared format
	ErrFormat = errors.New("FormatError")

	// ErrWrite means the normalized CSV could not be written
	ErrWrite = errors.New("WriteError")
)

// Error is a failure while processing one source
type Error struct {
	// Kind is one of the Err* sentinels of this package
	Kind error
	// Source is the name of the failing source
	Source string
	// Err is the underlying cause
	Err error
}

// NewError creates a new source error
func NewError(kind error, source string, err error) *Error {
	return &Error{Kind: kind, Source: source, Err: err}
}

// Error returns the error message
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// KindOf returns the kind name of err ("FetchError", ...), or "Error" when
// err is not a source error
func KindOf(err error) string {
	var srcErr *Error
	if errors.As(err, &srcErr) && srcErr.Kind != nil {
		return srcErr.Kind.Error()
	}
	return "Error"
}
