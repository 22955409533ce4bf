package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// unknownUser is reported when the token could not be read at all.
const unknownUser = "NA"

// AuthResult is the outcome of validating a session cookie.
type AuthResult struct {
	OK       bool
	Detail   string
	Username string
	// Err is one of the session sentinels when OK is false.
	Err error
}

func failed(err error, username string) AuthResult {
	return AuthResult{Detail: err.Error(), Username: username, Err: err}
}

// Validator checks session cookies against the SessionStore.
type Validator struct {
	sessions *SessionStore
	codec    *TokenCodec
	lifetime time.Duration
	now      func() time.Time
}

// NewValidator creates a Validator for sessions lasting lifetime
func NewValidator(sessions *SessionStore, codec *TokenCodec, lifetime time.Duration) *Validator {
	return &Validator{
		sessions: sessions,
		codec:    codec,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Validate reads the session cookie from r and validates it
func (v *Validator) Validate(r *http.Request) AuthResult {
	token, _ := TokenFromCookie(r)
	return v.ValidateToken(token)
}

// ValidateToken runs the checks in order: any stored session at all,
// cookie present, token decrypts, key matches the stored one, not expired.
func (v *Validator) ValidateToken(token string) AuthResult {
	if v.sessions.Len() == 0 {
		return failed(ErrNoSessions, unknownUser)
	}
	if token == "" {
		return failed(ErrNoSessionCookie, unknownUser)
	}

	payload, err := v.codec.Decrypt(token)
	if err != nil {
		return failed(ErrInvalidSessionToken, unknownUser)
	}

	stored, ok := v.sessions.Get(payload.Username)
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(payload.Key)) != 1 {
		return failed(ErrInvalidSessionToken, payload.Username)
	}

	issued, err := strconv.ParseInt(payload.Timestamp, 10, 64)
	if err != nil {
		return failed(ErrInvalidSessionToken, payload.Username)
	}

	lifetime := int64(v.lifetime / time.Second)
	elapsed := v.now().Unix() - issued
	if elapsed > lifetime {
		return failed(ErrSessionExpired, payload.Username)
	}

	return AuthResult{
		OK:       true,
		Detail:   fmt.Sprintf("session valid for %ds", lifetime-elapsed),
		Username: payload.Username,
	}
}
