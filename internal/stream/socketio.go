package stream

import (
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/zishang520/socket.io/servers/socket/v3"
)

const (
	// SnapshotEvent carries one serialized snapshot to the client.
	SnapshotEvent = "system_resources"
	// MessageEvent is echoed back verbatim.
	MessageEvent = "message"
)

var errDisconnected = errors.New("socket.io client disconnected")

// SocketIOConn adapts a Socket.IO client to Conn. Inbound `message`
// events are queued as frames; a full queue blocks the sender until the
// receive loop catches up or the connection is done.
type SocketIOConn struct {
	client   *socket.Socket
	frames   chan Frame
	done     chan struct{}
	doneOnce sync.Once
	writeMu  sync.Mutex
}

// NewSocketIOConn registers the message and disconnect handlers on client
func NewSocketIOConn(client *socket.Socket) *SocketIOConn {
	c := newSocketIOConn(client)
	client.On(MessageEvent, func(args ...any) { c.deliver(args) })
	client.On("disconnect", func(...any) { c.markDone() })
	return c
}

func newSocketIOConn(client *socket.Socket) *SocketIOConn {
	return &SocketIOConn{
		client: client,
		frames: make(chan Frame, 16),
		done:   make(chan struct{}),
	}
}

func (c *SocketIOConn) deliver(args []any) {
	frame, ok := toFrame(args)
	if !ok {
		return
	}
	select {
	case c.frames <- frame:
	case <-c.done:
	}
}

func (c *SocketIOConn) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

// toFrame converts the first event argument into a frame
func toFrame(args []any) (Frame, bool) {
	if len(args) == 0 {
		return Frame{}, false
	}
	switch v := args[0].(type) {
	case string:
		return Frame{Data: []byte(v)}, true
	case []byte:
		return Frame{Binary: true, Data: v}, true
	case nil:
		return Frame{}, false
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return Frame{}, false
		}
		return Frame{Data: data}, true
	}
}

func (c *SocketIOConn) emit(event string, arg any) error {
	select {
	case <-c.done:
		return errDisconnected
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.client.Emit(event, arg)
}

func (c *SocketIOConn) WriteSnapshot(data []byte) error {
	return c.emit(SnapshotEvent, string(data))
}

func (c *SocketIOConn) ReadFrame() (Frame, error) {
	select {
	case frame := <-c.frames:
		return frame, nil
	case <-c.done:
		return Frame{}, io.EOF
	}
}

func (c *SocketIOConn) WriteFrame(f Frame) error {
	if f.Binary {
		return c.emit(MessageEvent, f.Data)
	}
	return c.emit(MessageEvent, string(f.Data))
}

// Close disconnects the client. The reason is not sent over Socket.IO.
func (c *SocketIOConn) Close(string) error {
	select {
	case <-c.done:
		return nil
	default:
	}
	c.markDone()
	c.client.Disconnect(true)
	return nil
}
