package stream

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocketConn is a Conn over a raw WebSocket.
type WebSocketConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Upgrade switches the HTTP connection to the WebSocket protocol. On
// failure the upgrader has already written an HTTP error response.
func Upgrade(w http.ResponseWriter, r *http.Request) (*WebSocketConn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return NewWebSocketConn(conn), nil
}

// NewWebSocketConn wraps an established connection
func NewWebSocketConn(conn *websocket.Conn) *WebSocketConn {
	c := &WebSocketConn{conn: conn}
	conn.SetReadLimit(maxMessageSize)
	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})
	return c
}

func (c *WebSocketConn) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *WebSocketConn) WriteSnapshot(data []byte) error {
	return c.write(websocket.TextMessage, data)
}

// ReadFrame returns the next data frame. Control frames are answered by
// the handlers inside gorilla's reader.
func (c *WebSocketConn) ReadFrame() (Frame, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return Frame{}, err
		}
		switch messageType {
		case websocket.TextMessage:
			return Frame{Data: data}, nil
		case websocket.BinaryMessage:
			return Frame{Binary: true, Data: data}, nil
		}
	}
}

func (c *WebSocketConn) WriteFrame(f Frame) error {
	if f.Binary {
		return c.write(websocket.BinaryMessage, f.Data)
	}
	return c.write(websocket.TextMessage, f.Data)
}

// Close sends a normal closure frame carrying reason and drops the
// connection.
func (c *WebSocketConn) Close(reason string) error {
	var err error
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		err = c.conn.Close()
	})
	return err
}

// RemoteAddr returns the peer address
func (c *WebSocketConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
