package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// SessionStore maps a username to its current session key. A new login
// overwrites the previous key; entries are never removed.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]string
}

// NewSessionStore returns an empty store
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]string)}
}

// Set stores key as the only valid key for username
func (s *SessionStore) Set(username, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[username] = key
}

// Get returns the stored key for username
func (s *SessionStore) Get(username string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.sessions[username]
	return key, ok
}

// Len returns the number of stored sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// GenerateKey creates a random session key
func GenerateKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
