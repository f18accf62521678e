package classpath

import (
	"errors"
	"fmt"
)

// Scan error kinds. Every one of them aborts the enclosing scan.
var (
	ErrInvalidNamespace  = errors.New("invalid namespace")
	ErrLocationLookup    = errors.New("location lookup failed")
	ErrMalformedLocation = errors.New("malformed location")
	ErrArchiveOpen       = errors.New("archive open failed")
	ErrTraversal         = errors.New("traversal failed")
	ErrNotSupported      = errors.New("operation not supported")
)

// ScanError records the kind of a scan failure, the operation and location
// that caused it, and the underlying cause.
type ScanError struct {
	Kind     error
	Op       string
	Location string
	Err      error
}

// Error implements the error interface
func (e *ScanError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Location, e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *ScanError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error.
func (e *ScanError) Is(target error) bool {
	return e.Kind == target
}

func newScanError(kind error, op, location string, err error) *ScanError {
	return &ScanError{Kind: kind, Op: op, Location: location, Err: err}
}

// IsLocationLookup reports whether err came from enumerating search path roots
func IsLocationLookup(err error) bool {
	return errors.Is(err, ErrLocationLookup)
}

// IsArchiveOpen reports whether err came from mounting an archive root
func IsArchiveOpen(err error) bool {
	return errors.Is(err, ErrArchiveOpen)
}

// IsTraversal reports whether err came from walking a root
func IsTraversal(err error) bool {
	return errors.Is(err, ErrTraversal)
}
