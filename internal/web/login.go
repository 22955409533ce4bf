package web

import (
	"errors"
	"net/http"

	"sysmonk/internal/auth"
	"sysmonk/internal/netx"
)

// handleLogin verifies the Authorization header and sets the session cookie
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	payload, err := s.verifier.Verify(r.Header.Get("Authorization"))
	switch {
	case errors.Is(err, auth.ErrMalformedCredentials):
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("login without usable credentials")
		netx.WriteUnauthorized(w, "No credentials received")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		netx.WriteUnauthorized(w, "Incorrect username or password")
		return
	case err != nil:
		s.log.Error().Err(err).Msg("login failed")
		netx.WriteInternalServerError(w, "Failed to create session", nil)
		return
	}

	token, err := s.codec.Encrypt(*payload)
	if err != nil {
		s.log.Error().Err(err).Msg("sealing session token")
		netx.WriteInternalServerError(w, "Failed to create session", nil)
		return
	}

	auth.SetCookie(w, r, token, s.cfg.SessionLifetime())
	s.log.Info().Str("username", payload.Username).Msg("login successful")
	netx.WriteAuthSuccess(w, "Login successful", payload.Username, "/monitor")
}

// handleLogout clears the session cookie. The stored session key is left
// alone; the next login replaces it.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	result := s.validator.Validate(r)

	data := s.page("Logout")
	data.ShowLogin = true
	data.Detail = result.Detail
	if result.OK {
		data.Detail = "You have been logged out successfully"
		s.log.Info().Str("username", result.Username).Msg("logout")
	}

	auth.ClearCookie(w, r)
	s.pages.render(w, s.log, http.StatusOK, "logout", data)
}

// handleCheckAuth reports whether the request carries a valid session
func (s *Server) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	result := s.validator.Validate(r)
	if !result.OK {
		netx.WriteUnauthorized(w, result.Detail)
		return
	}
	netx.WriteAuthSuccess(w, result.Detail, result.Username, "")
}
