package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sysmonk/internal/system"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls    atomic.Int32
	failures int32
}

func (p *fakeProvider) Snapshot(ctx context.Context) (*system.Snapshot, error) {
	n := p.calls.Add(1)
	if n <= p.failures {
		return nil, errors.New("sampling failed")
	}
	return &system.Snapshot{
		CPUUsage:     []string{"1.00", "2.00"},
		MemoryInfo:   system.Usage{Total: 100, Used: 40},
		LoadAverages: system.LoadAverages{M1: 0.5, M5: 0.4, M15: 0.3},
		DiskInfo:     &system.Usage{Total: 1000, Used: 10},
		DockerStats:  []json.RawMessage{},
	}, nil
}

type fakeConn struct {
	writes   chan Frame
	inbound  chan Frame
	closed   chan struct{}
	once     sync.Once
	writeErr error

	mu     sync.Mutex
	reason string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		writes:  make(chan Frame, 64),
		inbound: make(chan Frame),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) WriteSnapshot(data []byte) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	select {
	case c.writes <- Frame{Data: data}:
	default:
	}
	return nil
}

func (c *fakeConn) ReadFrame() (Frame, error) {
	select {
	case f, ok := <-c.inbound:
		if !ok {
			return Frame{}, errors.New("eof")
		}
		return f, nil
	case <-c.closed:
		return Frame{}, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteFrame(f Frame) error {
	c.writes <- f
	return nil
}

func (c *fakeConn) Close(reason string) error {
	c.once.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.closed)
	})
	return nil
}

func (c *fakeConn) closeReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

func serveAsync(ch *Channel, ctx context.Context, conn Conn) <-chan error {
	done := make(chan error, 1)
	go func() { done <- ch.Serve(ctx, conn) }()
	return done
}

func waitErr(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("channel did not stop")
		return nil
	}
}

func TestChannelPushAndEcho(t *testing.T) {
	provider := &fakeProvider{}
	conn := newFakeConn()
	ch := NewChannel(provider, 10*time.Millisecond, time.Hour, zerolog.Nop())
	done := serveAsync(ch, context.Background(), conn)

	first := <-conn.writes
	var doc map[string]any
	require.NoError(t, json.Unmarshal(first.Data, &doc))
	assert.Contains(t, doc, "cpu_usage")
	assert.Contains(t, doc, "disk_info")
	assert.NotContains(t, doc, "swap_info")

	conn.inbound <- Frame{Binary: true, Data: []byte{0x01, 0x02}}

	deadline := time.After(2 * time.Second)
	for echoed := false; !echoed; {
		select {
		case f := <-conn.writes:
			echoed = f.Binary && string(f.Data) == "\x01\x02"
		case <-deadline:
			t.Fatal("frame was not echoed")
		}
	}
	assert.GreaterOrEqual(t, provider.calls.Load(), int32(1))

	close(conn.inbound)
	err := waitErr(t, done)
	assert.ErrorIs(t, err, ErrPeerClosed)
	assert.Equal(t, "closing", conn.closeReason())
}

func TestChannelSendFailureIsTerminal(t *testing.T) {
	conn := newFakeConn()
	conn.writeErr = errors.New("broken pipe")
	ch := NewChannel(&fakeProvider{}, time.Millisecond, time.Hour, zerolog.Nop())

	err := waitErr(t, serveAsync(ch, context.Background(), conn))
	assert.ErrorIs(t, err, ErrChannelSend)
	assert.Contains(t, err.Error(), "broken pipe")

	select {
	case <-conn.closed:
	default:
		t.Fatal("connection left open")
	}
}

func TestChannelExpiry(t *testing.T) {
	conn := newFakeConn()
	ch := NewChannel(&fakeProvider{}, time.Hour, 50*time.Millisecond, zerolog.Nop())

	start := time.Now()
	err := waitErr(t, serveAsync(ch, context.Background(), conn))
	assert.ErrorIs(t, err, ErrLifetimeExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, "session expired", conn.closeReason())
}

func TestChannelParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	conn := newFakeConn()
	ch := NewChannel(&fakeProvider{}, time.Hour, time.Hour, zerolog.Nop())
	done := serveAsync(ch, ctx, conn)

	<-conn.writes
	cancel()
	err := waitErr(t, done)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChannelSkipsFailedSnapshots(t *testing.T) {
	provider := &fakeProvider{failures: 2}
	conn := newFakeConn()
	ch := NewChannel(provider, 5*time.Millisecond, time.Hour, zerolog.Nop())
	done := serveAsync(ch, context.Background(), conn)

	select {
	case <-conn.writes:
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after provider recovered")
	}
	assert.GreaterOrEqual(t, provider.calls.Load(), int32(3))

	close(conn.inbound)
	waitErr(t, done)
}

func newWebSocketServer(t *testing.T, ch *Channel) (*httptest.Server, chan error) {
	t.Helper()
	results := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(w, r)
		if err != nil {
			results <- err
			return
		}
		results <- ch.Serve(r.Context(), conn)
	}))
	t.Cleanup(srv.Close)
	return srv, results
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketChannel(t *testing.T) {
	ch := NewChannel(&fakeProvider{}, 20*time.Millisecond, time.Hour, zerolog.Nop())
	srv, results := newWebSocketServer(t, ch)
	conn := dial(t, srv)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, messageType)
	var snapshot system.Snapshot
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Equal(t, []string{"1.00", "2.00"}, snapshot.CPUUsage)

	pong := make(chan string, 1)
	conn.SetPongHandler(func(appData string) error {
		pong <- appData
		return nil
	})
	require.NoError(t, conn.WriteControl(websocket.PingMessage, []byte("are you there"), time.Now().Add(time.Second)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	var gotEcho, gotPong bool
	for !gotEcho || !gotPong {
		messageType, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if messageType == websocket.TextMessage && string(data) == "hello" {
			gotEcho = true
		}
		select {
		case appData := <-pong:
			assert.Equal(t, "are you there", appData)
			gotPong = true
		default:
		}
	}

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))

	select {
	case err := <-results:
		// the push loop may hit the closed socket before the reader notices
		assert.True(t, errors.Is(err, ErrPeerClosed) || errors.Is(err, ErrChannelSend), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server channel did not stop")
	}
}

func TestWebSocketChannelExpiry(t *testing.T) {
	ch := NewChannel(&fakeProvider{}, time.Hour, 100*time.Millisecond, zerolog.Nop())
	srv, results := newWebSocketServer(t, ch)
	conn := dial(t, srv)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, "session expired", closeErr.Text)

	assert.ErrorIs(t, <-results, ErrLifetimeExceeded)
}

func TestSocketIOFrames(t *testing.T) {
	frame, ok := toFrame([]any{"hi"})
	assert.True(t, ok)
	assert.Equal(t, Frame{Data: []byte("hi")}, frame)

	frame, ok = toFrame([]any{[]byte{1}})
	assert.True(t, ok)
	assert.True(t, frame.Binary)

	frame, ok = toFrame([]any{map[string]any{"a": 1}})
	assert.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(frame.Data))

	_, ok = toFrame(nil)
	assert.False(t, ok)

	conn := newSocketIOConn(nil)
	conn.deliver([]any{"queued"})
	got, err := conn.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "queued", string(got.Data))

	conn.markDone()
	_, err = conn.ReadFrame()
	assert.Error(t, err)
	assert.ErrorIs(t, conn.WriteSnapshot([]byte("{}")), errDisconnected)
	assert.NoError(t, conn.Close("done"))
}

func TestSocketIOConnKeepsEveryFrame(t *testing.T) {
	conn := newSocketIOConn(nil)
	const total = 64

	go func() {
		for i := 0; i < total; i++ {
			conn.deliver([]any{strconv.Itoa(i)})
		}
	}()

	for i := 0; i < total; i++ {
		frame, err := conn.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(i), string(frame.Data))
	}

	// a closed connection never blocks the sender
	conn.markDone()
	delivered := make(chan struct{})
	go func() {
		for i := 0; i < total; i++ {
			conn.deliver([]any{"late"})
		}
		close(delivered)
	}()
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("deliver blocked after the connection was done")
	}
}
