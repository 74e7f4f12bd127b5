package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSignedIn is returned when an operation needs a current user.
	ErrNotSignedIn = errors.New("not signed in")

	errNoRefreshToken = errors.New("google returned no refresh token; sign in again with forced consent")
)

// AuthenticationError means sign-in failed or was cancelled. State stays unset.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	if e.Err == nil {
		return "authentication failed"
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// ScopeDeniedError means the user declined an incremental permission request.
type ScopeDeniedError struct {
	Scope string
	Err   error
}

func (e *ScopeDeniedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("permission %s was not granted", e.Scope)
	}
	return fmt.Sprintf("permission %s was not granted: %v", e.Scope, e.Err)
}

func (e *ScopeDeniedError) Unwrap() error {
	return e.Err
}
