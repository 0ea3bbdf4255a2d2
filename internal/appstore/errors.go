package appstore

import (
	"errors"
	"fmt"
)

// TransientFetchError reports a network or HTTP failure against one of the
// upstream endpoints. It is recoverable by retrying the enclosing work item;
// nothing in this package retries automatically.
type TransientFetchError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("%s endpoint: %v", e.Endpoint, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is (or wraps) a TransientFetchError.
func IsTransient(err error) bool {
	var t *TransientFetchError
	return errors.As(err, &t)
}
