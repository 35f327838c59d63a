package netconn

import "github.com/JamaalDavis/holochain-rust/internal/protocol"

// Handler receives every event a Worker produces.
// err is nil for a delivered message and set for a failure event, in which
// case msg is the zero Message. A Handler is owned by the Worker it was given
// to and is only ever invoked from the goroutine driving that Worker.
type Handler func(msg protocol.Message, err error) error

// Worker performs the transport I/O behind a connection
type Worker interface {
	// Receive delivers one outbound application message to the transport
	Receive(msg protocol.Message) error

	// Tick gives the worker a chance to do background work, such as polling
	// a socket. It reports whether anything meaningful happened.
	Tick() (bool, error)

	// Destroy releases transport resources. It is called exactly once and
	// the worker is not used afterwards.
	Destroy() error
}

// BaseWorker provides no-op defaults for every Worker hook
type BaseWorker struct{}

// Receive discards msg
func (BaseWorker) Receive(protocol.Message) error { return nil }

// Tick reports no activity
func (BaseWorker) Tick() (bool, error) { return false, nil }

// Destroy does nothing
func (BaseWorker) Destroy() error { return nil }

// WorkerFactory constructs a Worker bound to handler.
// Implementations must be safe to call from a goroutine other than the one
// that created the factory.
type WorkerFactory interface {
	New(handler Handler) (Worker, error)
}

// WorkerFactoryFunc adapts a function to WorkerFactory
type WorkerFactoryFunc func(handler Handler) (Worker, error)

// New calls f(handler)
func (f WorkerFactoryFunc) New(handler Handler) (Worker, error) {
	return f(handler)
}

// Connection is the uniform send surface of a relay
type Connection interface {
	Send(msg protocol.Message) error
}

var (
	_ Connection = (*Relay)(nil)
	_ Connection = (*Thread)(nil)
	_ Worker     = BaseWorker{}
)
