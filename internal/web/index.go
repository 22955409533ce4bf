package web

import (
	"errors"
	"net/http"

	"sysmonk/internal/auth"
	"sysmonk/internal/netx"
	"sysmonk/internal/system"
)

// StatusSessionExpired is the non-standard "Login Time-out" status.
const StatusSessionExpired = 440

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	netx.WriteJSON(w, http.StatusOK, "Healthy")
}

// handleIndex serves the login page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.pages.render(w, s.log, http.StatusOK, "index", s.page("Login"))
}

// handleMonitor serves the dashboard page
func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	result, _ := auth.ResultFromContext(r.Context())

	overview, err := s.overview.Overview(r.Context())
	if err != nil {
		s.log.Warn().Err(err).Msg("host overview unavailable")
		overview = &system.Overview{}
	}

	data := s.page("Monitor")
	data.Username = result.Username
	data.Detail = result.Detail
	data.Overview = overview
	s.pages.render(w, s.log, http.StatusOK, "monitor", data)
}

// failedAuth clears the cookie and renders the matching rejection page
func (s *Server) failedAuth(w http.ResponseWriter, r *http.Request, result auth.AuthResult) {
	s.log.Warn().
		Str("username", result.Username).
		Str("detail", result.Detail).
		Str("path", r.URL.Path).
		Msg("request rejected")

	auth.ClearCookie(w, r)

	status, name, title := http.StatusUnauthorized, "unauthorized", "Unauthorized"
	if errors.Is(result.Err, auth.ErrSessionExpired) {
		status, name, title = StatusSessionExpired, "session", "Session expired"
	}

	data := s.page(title)
	data.Detail = result.Detail
	s.pages.render(w, s.log, status, name, data)
}
