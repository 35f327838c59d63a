package relay

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrListenerClosed is returned when trying to accept on a closed listener
	ErrListenerClosed = errors.New("listener is closed")
	// ErrSenderClosed is returned when trying to dial with a closed sender
	ErrSenderClosed = errors.New("sender is closed")
	// ErrConnectionClosed is returned when trying to read/write on a closed connection
	ErrConnectionClosed = errors.New("connection is closed")
)

// memoryConnection is one end of an in-memory bidirectional pipe
type memoryConnection struct {
	reader *io.PipeReader
	writer *io.PipeWriter
	mu     sync.Mutex
	closed bool
}

func (c *memoryConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Read reads data from the connection
func (c *memoryConnection) Read(p []byte) (int, error) {
	if c.isClosed() {
		return 0, ErrConnectionClosed
	}
	return c.reader.Read(p)
}

// Write writes data to the connection
func (c *memoryConnection) Write(p []byte) (int, error) {
	if c.isClosed() {
		return 0, ErrConnectionClosed
	}
	return c.writer.Write(p)
}

// Close closes both directions; the peer sees EOF
func (c *memoryConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.reader.Close()
	_ = c.writer.Close()
	return nil
}

// MemoryPipe returns two connected in-memory connections
func MemoryPipe() (Connection, Connection) {
	aReader, bWriter := io.Pipe()
	bReader, aWriter := io.Pipe()
	return &memoryConnection{reader: aReader, writer: aWriter},
		&memoryConnection{reader: bReader, writer: bWriter}
}

// MemoryListener is an in-process Listener
type MemoryListener struct {
	addr        string
	connections chan Connection
	done        chan struct{}
	mu          sync.Mutex
	closed      bool
}

// NewMemoryListener creates a new in-memory listener
func NewMemoryListener() *MemoryListener {
	return &MemoryListener{
		addr:        "memory://" + uuid.NewString(),
		connections: make(chan Connection, 10),
		done:        make(chan struct{}),
	}
}

// Accept waits for and returns the next connection
func (l *MemoryListener) Accept(ctx context.Context) (Connection, error) {
	select {
	case <-l.done:
		return nil, ErrListenerClosed
	default:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, ErrListenerClosed
	case conn := <-l.connections:
		return conn, nil
	}
}

// Addr returns the listener's unique in-process address
func (l *MemoryListener) Addr() string {
	return l.addr
}

// Close closes the listener and any connections not yet accepted.
// Blocked Accept and Dial calls return ErrListenerClosed.
func (l *MemoryListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.done)
	for {
		select {
		case conn := <-l.connections:
			_ = conn.Close()
		default:
			return nil
		}
	}
}

// addConnection queues conn for Accept. It blocks while the queue is full
// without holding the listener lock.
func (l *MemoryListener) addConnection(ctx context.Context, conn Connection) error {
	select {
	case <-l.done:
		return ErrListenerClosed
	default:
	}

	select {
	case l.connections <- conn:
		// Close may have freed the slot this send took
		select {
		case <-l.done:
			_ = conn.Close()
			return ErrListenerClosed
		default:
			return nil
		}
	case <-l.done:
		return ErrListenerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MemorySender dials a MemoryListener
type MemorySender struct {
	listener *MemoryListener
	mu       sync.Mutex
	closed   bool
}

// NewMemorySender creates a new in-memory sender connected to the given listener
func NewMemorySender(listener *MemoryListener) *MemorySender {
	return &MemorySender{
		listener: listener,
	}
}

// Dial creates a new connection to the listener
func (s *MemorySender) Dial(ctx context.Context) (Connection, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSenderClosed
	}
	s.mu.Unlock()

	senderConn, listenerConn := MemoryPipe()

	if err := s.listener.addConnection(ctx, listenerConn); err != nil {
		_ = senderConn.Close()
		_ = listenerConn.Close()
		return nil, err
	}
	return senderConn, nil
}

// Close closes the sender
func (s *MemorySender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var (
	_ Listener = (*MemoryListener)(nil)
	_ Sender   = (*MemorySender)(nil)
)
