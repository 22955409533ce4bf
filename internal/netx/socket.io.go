package netx

import (
	"net/http"

	"github.com/zishang520/socket.io/servers/engine/v3"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"
)

// Socket represents a wrapper around the Socket.IO server
type Socket struct {
	sock       *socket.Server
	namespaces map[string]*Namespace
}

// NewSocket configures and creates the Socket.IO server
func NewSocket(path string) *Socket {
	opts := socket.DefaultServerOptions()
	opts.SetPath(path)
	opts.SetTransports(types.NewSet(
		engine.Polling,   // HTTP long-polling transport
		engine.WebSocket, // WebSocket transport for real-time communication
	))
	opts.SetMaxHttpBufferSize(1e6) // 1MB
	return &Socket{
		sock:       socket.NewServer(nil, opts),
		namespaces: make(map[string]*Namespace),
	}
}

// AddNamespace creates a new Socket.IO namespace and adds it to the server
func (self *Socket) AddNamespace(name string) *Namespace {
	if namespace, ok := self.namespaces[name]; ok {
		return namespace
	}
	namespace := &Namespace{
		namespace: self.sock.Of(name, nil),
		events:    make(map[string]func(*socket.Socket, ...any)),
	}
	self.namespaces[name] = namespace
	return namespace
}

// Handler returns an HTTP handler for the Socket.IO server
func (self *Socket) Handler() http.Handler {
	return self.sock.ServeHandler(nil)
}

// Namespace represents a Socket.IO namespace with custom event handling
type Namespace struct {
	namespace socket.Namespace
	onConnect []func(client *socket.Socket)
	events    map[string]func(client *socket.Socket, data ...any)
}

// OnConnect registers a hook that runs once for every new client,
// before its event handlers are attached
func (self *Namespace) OnConnect(f func(client *socket.Socket)) {
	self.onConnect = append(self.onConnect, f)
}

// AddEvent registers a custom event handler for the namespace
func (self *Namespace) AddEvent(event string, f func(*socket.Socket, ...any)) {
	self.events[event] = f
}

// RegisterEvents activates the connect hooks and event handlers for new
// client connections. Call it after every hook and event is added.
func (self *Namespace) RegisterEvents() {
	self.namespace.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		for _, f := range self.onConnect {
			f(client)
		}
		for event, f := range self.events {
			client.On(event, func(data ...any) { f(client, data...) })
		}
	})
}

// AddMiddleware adds a middleware to the namespace
func (self *Namespace) AddMiddleware(f func(client *socket.Socket, next func(*socket.ExtendedError))) {
	self.namespace.Use(f)
}
