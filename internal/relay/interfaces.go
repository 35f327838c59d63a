package relay

import (
	"context"
	"io"
)

// Connection represents a bidirectional stream between two peers
type Connection interface {
	io.ReadWriteCloser
}

// Listener accepts incoming connections
type Listener interface {
	// Accept waits for and returns the next connection to the listener
	Accept(ctx context.Context) (Connection, error)

	// Close closes the listener
	// Any blocked Accept operations will be unblocked and return errors
	Close() error

	// Addr returns the listener's address
	Addr() string
}

// Sender establishes connections to a listener
type Sender interface {
	// Dial creates a new connection to the listener
	Dial(ctx context.Context) (Connection, error)

	// Close closes the sender
	Close() error
}
