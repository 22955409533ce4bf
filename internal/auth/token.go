package auth

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20poly1305"
)

// Payload is the content of a session cookie before encryption.
type Payload struct {
	Username  string `json:"username"`
	Key       string `json:"key"`
	Timestamp string `json:"timestamp"`
}

// TokenCodec seals session payloads with XChaCha20-Poly1305. The key is
// generated once per process and kept in a memguard enclave, so every
// token becomes invalid on restart.
type TokenCodec struct {
	key *memguard.Enclave
}

// NewTokenCodec creates a codec with a fresh random key
func NewTokenCodec() *TokenCodec {
	return &TokenCodec{key: memguard.NewEnclaveRandom(chacha20poly1305.KeySize)}
}

func (c *TokenCodec) aead() (cipher.AEAD, error) {
	buf, err := c.key.Open()
	if err != nil {
		return nil, fmt.Errorf("opening token key: %w", err)
	}
	defer buf.Destroy()
	return chacha20poly1305.NewX(buf.Bytes())
}

// Encrypt returns the URL-safe cookie value for p
func (c *TokenCodec) Encrypt(p Payload) (string, error) {
	plaintext, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding session payload: %w", err)
	}

	aead, err := c.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a cookie value. Every failure wraps ErrInvalidSessionToken.
func (c *TokenCodec) Decrypt(token string) (*Payload, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}

	aead, err := c.aead()
	if err != nil {
		return nil, err
	}

	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext shorter than nonce size", ErrInvalidSessionToken)
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypting ciphertext: %v", ErrInvalidSessionToken, err)
	}

	var p Payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if p.Username == "" || p.Key == "" || p.Timestamp == "" {
		return nil, fmt.Errorf("%w: incomplete payload", ErrInvalidSessionToken)
	}
	return &p, nil
}
