package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedCredentials means the authorization value could not be decoded.
	ErrMalformedCredentials = errors.New("malformed credentials")
	// ErrMissingCredentials means the authorization value was absent or had
	// fewer than three fields. It is also an ErrMalformedCredentials.
	ErrMissingCredentials = fmt.Errorf("%w: missing fields", ErrMalformedCredentials)
	// ErrInvalidCredentials means the username or signature did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoSessions means nobody has logged in since startup.
	ErrNoSessions = errors.New("no stored sessions")
	// ErrNoSessionCookie means the request carried no session cookie.
	ErrNoSessionCookie = errors.New("session information not found")
	// ErrInvalidSessionToken means the cookie did not decrypt or its key is stale.
	ErrInvalidSessionToken = errors.New("invalid session token")
	// ErrSessionExpired means the session outlived session_duration.
	ErrSessionExpired = errors.New("session expired")
)
