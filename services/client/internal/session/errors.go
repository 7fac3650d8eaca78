package session

import (
	"errors"
	"fmt"
)

// ErrSessionExpired is returned by Do when the server rejected the session
// with 401 and the local session has been cleared.
var ErrSessionExpired = errors.New("session expired")

// ErrNotAuthenticated is returned by calls that need a logged-in session.
var ErrNotAuthenticated = errors.New("session: not logged in")

// AuthError is a rejected login, registration or password operation. Message is the server's
// message when it sent one.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth rejected (status %d): %s", e.StatusCode, e.Message)
}

// ServerError is any other non-success response.
type ServerError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ServerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Message)
}

// NetworkError means no response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }
