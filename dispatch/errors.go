package dispatch

import (
	"errors"
	"fmt"
)

// TransientAPIError marks a delivery failure that may succeed on retry:
// timeouts, rate limiting, server errors.
type TransientAPIError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientAPIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: transient API failure: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: transient API failure (HTTP %d)", e.Op, e.StatusCode)
}

func (e *TransientAPIError) Unwrap() error { return e.Err }

// PermanentAPIError marks a delivery failure that retrying cannot fix:
// rejected requests, missing users, revoked credentials.
type PermanentAPIError struct {
	Op         string
	StatusCode int
	Msg        string
}

func (e *PermanentAPIError) Error() string {
	return fmt.Sprintf("%s: permanent API failure (HTTP %d): %s", e.Op, e.StatusCode, e.Msg)
}

// IsTransient reports whether the delivery failure is worth retrying later.
func IsTransient(err error) bool {
	var te *TransientAPIError
	return errors.As(err, &te)
}
