package web

import (
	"errors"
	"net/http"

	"sysmonk/internal/auth"
	"sysmonk/internal/netx"
	"sysmonk/internal/stream"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// handleSystemSocket upgrades an authenticated request and streams
// snapshots until the channel ends
func (s *Server) handleSystemSocket(w http.ResponseWriter, r *http.Request) {
	result, _ := auth.ResultFromContext(r.Context())

	release, err := s.slots.Acquire()
	if err != nil {
		s.log.Warn().Str("username", result.Username).Msg("rejecting channel, no free slot")
		netx.WriteError(w, http.StatusServiceUnavailable, "Too many open connections", nil)
		return
	}
	defer release()

	conn, err := stream.Upgrade(w, r)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	log := s.log.With().
		Str("channel", uuid.NewString()).
		Str("username", result.Username).
		Str("remote", conn.RemoteAddr()).
		Logger()
	log.Info().Msg("telemetry channel opened")

	channel := stream.NewChannel(s.provider, s.cfg.Interval.Duration, s.cfg.SessionLifetime(), log)
	logChannelEnd(log, channel.Serve(s.base, conn))
}

func logChannelEnd(log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, stream.ErrLifetimeExceeded):
		log.Info().Msg("telemetry channel closed, session expired")
	case errors.Is(err, stream.ErrChannelSend), errors.Is(err, stream.ErrPeerClosed):
		log.Info().Err(err).Msg("telemetry channel closed by peer")
	default:
		log.Info().Err(err).Msg("telemetry channel closed")
	}
}
