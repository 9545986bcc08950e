package store

import (
	"errors"
	"fmt"
)

// UnavailableError reports that the underlying storage could not be opened or
// has become unusable (missing directory, corrupted file, exhausted disk).
// The affected operation is abandoned; the store never retries on its own,
// and callers must not treat the failure as silent success.
type UnavailableError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("store unavailable (%s): %v", e.Path, e.Err)
	}
	return fmt.Sprintf("store unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is (or wraps) an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
