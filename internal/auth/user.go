package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sysmonk/internal/conf"

	"github.com/rs/zerolog"
)

// maxClockSkew bounds how far in the future a login timestamp may be.
const maxClockSkew = 60 * time.Second

// Sign returns the login signature for the given credentials:
// hex(sha256(hex(username) + hex(password) + timestamp)).
func Sign(username, password, timestamp string) string {
	sum := sha256.Sum256([]byte(hex.EncodeToString([]byte(username)) +
		hex.EncodeToString([]byte(password)) + timestamp))
	return hex.EncodeToString(sum[:])
}

// EncodeAuthorization builds the value a client sends in the
// Authorization header of a login request.
func EncodeAuthorization(username, password, timestamp string) string {
	raw := hex.EncodeToString([]byte(username)) + "," + Sign(username, password, timestamp) + "," + timestamp
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// Verifier checks login requests against the configured username and
// password and opens a session on success.
type Verifier struct {
	username string
	password string
	sessions *SessionStore
	log      zerolog.Logger
	now      func() time.Time
}

// NewVerifier creates a Verifier for the configured credentials
func NewVerifier(cfg conf.Auth, sessions *SessionStore, log zerolog.Logger) *Verifier {
	return &Verifier{
		username: cfg.Username,
		password: cfg.Password,
		sessions: sessions,
		log:      log,
		now:      time.Now,
	}
}

// Verify decodes an authorization value, checks its signature and stores
// a fresh session key for the user. The returned payload is ready to be
// sealed into a session cookie.
func (v *Verifier) Verify(authorization string) (*Payload, error) {
	authorization = strings.TrimSpace(authorization)
	if authorization == "" {
		return nil, ErrMissingCredentials
	}

	decoded, err := base64.StdEncoding.DecodeString(authorization)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCredentials, err)
	}

	// fields past the third are ignored
	parts := strings.Split(string(decoded), ",")
	if len(parts) < 3 {
		return nil, ErrMissingCredentials
	}

	rawUsername, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: username is not hex encoded", ErrMalformedCredentials)
	}
	username, signature, timestamp := string(rawUsername), parts[1], parts[2]

	issued, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp is not a number", ErrMalformedCredentials)
	}

	expected := Sign(username, v.password, timestamp)
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) == 1
	signatureOK := subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
	if !userOK || !signatureOK {
		v.log.Warn().Str("username", username).Msg("incorrect username or password")
		return nil, ErrInvalidCredentials
	}

	if time.Unix(issued, 0).After(v.now().Add(maxClockSkew)) {
		v.log.Warn().Str("username", username).Int64("timestamp", issued).Msg("login timestamp is in the future")
		return nil, ErrInvalidCredentials
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	v.sessions.Set(username, key)

	return &Payload{Username: username, Key: key, Timestamp: timestamp}, nil
}
