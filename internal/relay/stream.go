package relay

import (
	"errors"
	"fmt"
	"sync"

	"github.com/JamaalDavis/holochain-rust/internal/logging"
	"github.com/JamaalDavis/holochain-rust/internal/netconn"
	"github.com/JamaalDavis/holochain-rust/internal/protocol"
)

// ErrStreamClosed is reported once when the remote end stops sending
var ErrStreamClosed = errors.New("relay: stream closed by peer")

// StreamWorker is a netconn.Worker over a Connection.
//
// Receive writes one length-prefixed frame. A reader goroutine decodes
// inbound frames into an inbox and Tick hands them to the handler, so Tick
// never blocks. A read failure is reported once, as a Tick error.
type StreamWorker struct {
	conn    Connection
	handler netconn.Handler
	logger  *logging.Logger

	mu       sync.Mutex
	inbox    []protocol.Message
	readErr  error
	reported bool
	closing  bool

	readerDone chan struct{}
}

// NewStreamWorker starts reading conn and returns the worker
func NewStreamWorker(conn Connection, handler netconn.Handler, logger *logging.Logger) *StreamWorker {
	if logger == nil {
		logger = logging.Nop()
	}
	w := &StreamWorker{
		conn:       conn,
		handler:    handler,
		logger:     logger,
		readerDone: make(chan struct{}),
	}
	go w.readLoop()
	return w
}

func (w *StreamWorker) readLoop() {
	defer close(w.readerDone)
	for {
		msg, err := protocol.ReadFrame(w.conn)
		if err != nil {
			w.mu.Lock()
			w.readErr = err
			w.mu.Unlock()
			return
		}
		w.mu.Lock()
		w.inbox = append(w.inbox, msg)
		w.mu.Unlock()
	}
}

// Receive writes msg to the stream
func (w *StreamWorker) Receive(msg protocol.Message) error {
	if err := protocol.WriteFrame(w.conn, msg); err != nil {
		return fmt.Errorf("relay: write frame: %w", err)
	}
	return nil
}

// Tick delivers every frame read since the last call.
// It reports activity when at least one frame was delivered.
func (w *StreamWorker) Tick() (bool, error) {
	w.mu.Lock()
	msgs := w.inbox
	w.inbox = nil
	w.mu.Unlock()

	for i, msg := range msgs {
		if err := w.handler(msg, nil); err != nil {
			w.requeue(msgs[i+1:])
			return true, fmt.Errorf("relay: handler: %w", err)
		}
	}

	if readErr := w.takeReadErr(); readErr != nil {
		w.logger.Debug("Stream read ended", logging.Error(readErr))
		return len(msgs) > 0, fmt.Errorf("%w: %w", ErrStreamClosed, readErr)
	}
	return len(msgs) > 0, nil
}

// takeReadErr returns the read failure the first time it is called once
// the reader has stopped and every frame before it has been delivered
func (w *StreamWorker) takeReadErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.readErr == nil || w.reported || w.closing || len(w.inbox) > 0 {
		return nil
	}
	w.reported = true
	return w.readErr
}

// requeue puts undelivered frames back at the head of the inbox
func (w *StreamWorker) requeue(rest []protocol.Message) {
	if len(rest) == 0 {
		return
	}
	w.mu.Lock()
	w.inbox = append(append([]protocol.Message(nil), rest...), w.inbox...)
	w.mu.Unlock()
}

// Destroy closes the connection and waits for the reader to exit
func (w *StreamWorker) Destroy() error {
	w.mu.Lock()
	w.closing = true
	w.mu.Unlock()

	err := w.conn.Close()
	<-w.readerDone
	if err != nil {
		return fmt.Errorf("relay: close connection: %w", err)
	}
	return nil
}

var _ netconn.Worker = (*StreamWorker)(nil)
