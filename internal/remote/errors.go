package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth means the token is invalid or has no access to the repository.
	ErrAuth = errors.New("authentication failed")
	// ErrNotFound means the path does not exist at the current ref.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a write was rejected because the version token
	// (blob sha) no longer matches the store's current one.
	ErrConflict = errors.New("conflict")
)

// NetError wraps a transport-level failure (DNS, TCP, TLS, timeout). It is
// distinct from the sentinel errors above: the request never produced an
// HTTP status.
type NetError struct {
	Op  string
	Err error
}

func (e *NetError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetError) Unwrap() error { return e.Err }

// IsNetwork reports whether err is (or wraps) a NetError.
func IsNetwork(err error) bool {
	var ne *NetError
	return errors.As(err, &ne)
}
