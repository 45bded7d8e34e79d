package core

import "errors"

var (
	// ErrUnauthenticated means no valid session credential is available.
	// It is terminal for the current session: the user has to /login again.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrUnauthorized means the session is valid but lacks rights for the operation.
	ErrUnauthorized = errors.New("not authorized")
	// ErrNotFound means the remote resource reports the entity absent.
	ErrNotFound = errors.New("not found")
)

// ValidationError carries a user-facing message about rejected input,
// whether detected client-side or reported by the remote side.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
