package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JamaalDavis/holochain-rust/internal/logging"
	"github.com/JamaalDavis/holochain-rust/internal/netconn"
)

// DefaultConnectTimeout bounds Dial and Accept inside a factory
const DefaultConnectTimeout = 30 * time.Second

// DialFactory opens a connection with Sender when the worker is built
type DialFactory struct {
	Sender  Sender
	Timeout time.Duration
	Logger  *logging.Logger
}

// New dials and wraps the connection in a StreamWorker
func (f *DialFactory) New(handler netconn.Handler) (netconn.Worker, error) {
	if f.Sender == nil {
		return nil, errors.New("relay: dial factory has no sender")
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeoutOr(f.Timeout))
	defer cancel()

	conn, err := f.Sender.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("relay: dial: %w", err)
	}
	logger(f.Logger).Debug("Stream connection dialed")
	return NewStreamWorker(conn, handler, f.Logger), nil
}

// AcceptFactory waits for a connection on Listener when the worker is built
type AcceptFactory struct {
	Listener Listener
	Timeout  time.Duration
	Logger   *logging.Logger
}

// New accepts and wraps the connection in a StreamWorker
func (f *AcceptFactory) New(handler netconn.Handler) (netconn.Worker, error) {
	if f.Listener == nil {
		return nil, errors.New("relay: accept factory has no listener")
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeoutOr(f.Timeout))
	defer cancel()

	conn, err := f.Listener.Accept(ctx)
	if err != nil {
		return nil, fmt.Errorf("relay: accept: %w", err)
	}
	logger(f.Logger).Debug("Stream connection accepted", logging.String("addr", f.Listener.Addr()))
	return NewStreamWorker(conn, handler, f.Logger), nil
}

// ConnFactory wraps an already established connection.
// It is single use: a second New fails.
type ConnFactory struct {
	conn   Connection
	logger *logging.Logger
}

// NewConnFactory returns a factory for conn
func NewConnFactory(conn Connection, logger *logging.Logger) *ConnFactory {
	return &ConnFactory{conn: conn, logger: logger}
}

// New wraps the connection; it may only be called once
func (f *ConnFactory) New(handler netconn.Handler) (netconn.Worker, error) {
	if f.conn == nil {
		return nil, errors.New("relay: connection already used")
	}
	conn := f.conn
	f.conn = nil
	return NewStreamWorker(conn, handler, f.logger), nil
}

func timeoutOr(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultConnectTimeout
	}
	return d
}

func logger(l *logging.Logger) *logging.Logger {
	if l == nil {
		return logging.Nop()
	}
	return l
}

var (
	_ netconn.WorkerFactory = (*DialFactory)(nil)
	_ netconn.WorkerFactory = (*AcceptFactory)(nil)
	_ netconn.WorkerFactory = (*ConnFactory)(nil)
)
