package relay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JamaalDavis/holochain-rust/internal/netconn"
	"github.com/JamaalDavis/holochain-rust/internal/protocol"
)

var (
	// ErrPeerDetached is returned when a bridge end has no live worker
	ErrPeerDetached = errors.New("relay: bridge peer is not attached")
	// ErrAlreadyAttached is returned when a bridge end is built twice
	ErrAlreadyAttached = errors.New("relay: bridge end already has a worker")
)

// ReplyFunc rewrites a message before a loopback hands it back.
// Returning false leaves the message unchanged.
type ReplyFunc func(msg protocol.Message) (protocol.Message, bool)

// LoopbackFactory builds workers that pass every received message straight
// back to their own handler
type LoopbackFactory struct {
	Reply ReplyFunc
}

// NewLoopbackFactory returns a plain echo factory
func NewLoopbackFactory() *LoopbackFactory {
	return &LoopbackFactory{}
}

// NewPongFactory returns a loopback that answers pings with pongs
func NewPongFactory() *LoopbackFactory {
	return &LoopbackFactory{Reply: PongReply}
}

// PongReply answers a ping with a pong stamped now
func PongReply(msg protocol.Message) (protocol.Message, bool) {
	return protocol.Pong(msg, time.Now())
}

// New returns a loopback worker bound to handler
func (f *LoopbackFactory) New(handler netconn.Handler) (netconn.Worker, error) {
	return &loopbackWorker{handler: handler, reply: f.Reply}, nil
}

type loopbackWorker struct {
	netconn.BaseWorker
	handler netconn.Handler
	reply   ReplyFunc
}

func (w *loopbackWorker) Receive(msg protocol.Message) error {
	if w.reply != nil {
		if r, ok := w.reply(msg); ok {
			msg = r
		}
	}
	return w.handler(msg, nil)
}

// bridgeEnd is one side of a Bridge
type bridgeEnd struct {
	name     string
	peer     *bridgeEnd
	mu       sync.Mutex
	inbox    []protocol.Message
	attached bool
}

// NewBridge returns the two ends of an in-memory link between two logical
// peers. A message sent through a relay built from one end is queued for the
// other end and delivered to that side's handler on its next Tick.
func NewBridge() (netconn.WorkerFactory, netconn.WorkerFactory) {
	a := &bridgeEnd{name: "a"}
	b := &bridgeEnd{name: "b"}
	a.peer, b.peer = b, a
	return a, b
}

// New attaches a worker to this end
func (e *bridgeEnd) New(handler netconn.Handler) (netconn.Worker, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.attached {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyAttached, e.name)
	}
	e.attached = true
	return &bridgeWorker{end: e, handler: handler}, nil
}

func (e *bridgeEnd) deliver(msg protocol.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.attached {
		return fmt.Errorf("%w: %s", ErrPeerDetached, e.name)
	}
	e.inbox = append(e.inbox, msg)
	return nil
}

func (e *bridgeEnd) drain() []protocol.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	msgs := e.inbox
	e.inbox = nil
	return msgs
}

func (e *bridgeEnd) detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attached = false
	e.inbox = nil
}

type bridgeWorker struct {
	end     *bridgeEnd
	handler netconn.Handler
}

// Receive forwards msg to the other end
func (w *bridgeWorker) Receive(msg protocol.Message) error {
	return w.end.peer.deliver(msg)
}

// Tick hands messages from the other end to the handler
func (w *bridgeWorker) Tick() (bool, error) {
	msgs := w.end.drain()
	for _, msg := range msgs {
		if err := w.handler(msg, nil); err != nil {
			return true, err
		}
	}
	return len(msgs) > 0, nil
}

// Destroy detaches this end; the peer's sends start failing
func (w *bridgeWorker) Destroy() error {
	w.end.detach()
	return nil
}

var (
	_ netconn.WorkerFactory = (*LoopbackFactory)(nil)
	_ netconn.Worker        = (*bridgeWorker)(nil)
)
