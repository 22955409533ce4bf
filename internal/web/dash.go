package web

import (
	"encoding/json"
	"sync"

	"sysmonk/internal/auth"
	"sysmonk/internal/stream"

	"github.com/zishang520/socket.io/servers/socket/v3"
)

const dashboardNamespace = "/system"

// dashboardManager tracks the Socket.IO clients with an open channel.
type dashboardManager struct {
	mu    sync.RWMutex
	conns map[string]*stream.SocketIOConn
}

func newDashboardManager() *dashboardManager {
	return &dashboardManager{conns: make(map[string]*stream.SocketIOConn)}
}

func (m *dashboardManager) add(id string, conn *stream.SocketIOConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[id] = conn
}

func (m *dashboardManager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, id)
}

func (m *dashboardManager) get(id string) (*stream.SocketIOConn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.conns[id]
	return conn, ok
}

// count returns the number of active dashboard sessions
func (m *dashboardManager) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// setupDashboard registers the Socket.IO namespace that mirrors /ws/system
func (s *Server) setupDashboard() {
	namespace := s.sio.AddNamespace(dashboardNamespace)
	namespace.AddMiddleware(auth.RequireAuthSocketIO(s.validator))
	namespace.OnConnect(s.handleDashboardConnect)
	namespace.AddEvent("refresh_data", s.handleRefreshData)
	namespace.RegisterEvents()
}

// handleDashboardConnect starts a telemetry channel for an authenticated client
func (s *Server) handleDashboardConnect(client *socket.Socket) {
	id := string(client.Id())

	release, err := s.slots.Acquire()
	if err != nil {
		s.log.Warn().Str("client", id).Msg("rejecting dashboard, no free slot")
		client.Emit("dashboard_error", "Too many open connections")
		client.Disconnect(true)
		return
	}

	token, _ := auth.TokenFromHandshake(client.Handshake().Headers)
	result := s.validator.ValidateToken(token)

	conn := stream.NewSocketIOConn(client)
	s.dashboard.add(id, conn)

	log := s.log.With().
		Str("channel", id).
		Str("username", result.Username).
		Str("transport", "socket.io").
		Logger()
	log.Info().Int("active", s.dashboard.count()).Msg("telemetry channel opened")

	channel := stream.NewChannel(s.provider, s.cfg.Interval.Duration, s.cfg.SessionLifetime(), log)
	go func() {
		defer release()
		defer s.dashboard.remove(id)
		logChannelEnd(log, channel.Serve(s.base, conn))
	}()
}

// handleRefreshData pushes one extra snapshot on request
func (s *Server) handleRefreshData(client *socket.Socket, data ...any) {
	conn, ok := s.dashboard.get(string(client.Id()))
	if !ok {
		client.Emit("dashboard_error", "No active dashboard session")
		return
	}

	go func() {
		if err := s.refresh(conn); err != nil {
			client.Emit("dashboard_error", "Failed to collect system metrics")
		}
	}()
}

// refresh sends one snapshot outside the push schedule. Only collection
// failures are returned; a failed send is left to the channel to notice.
func (s *Server) refresh(conn stream.Conn) error {
	snapshot, err := s.provider.Snapshot(s.base)
	if err != nil {
		s.log.Warn().Err(err).Msg("manual refresh failed")
		return err
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		s.log.Warn().Err(err).Msg("encoding manual refresh")
		return err
	}
	if err := conn.WriteSnapshot(payload); err != nil {
		s.log.Debug().Err(err).Msg("manual refresh not delivered")
	}
	return nil
}
