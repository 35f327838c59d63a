package netconn

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JamaalDavis/holochain-rust/internal/protocol"
)

// echoWorker forwards every received message to its handler
type echoWorker struct {
	BaseWorker
	handler Handler
}

func (w *echoWorker) Receive(msg protocol.Message) error {
	return w.handler(msg, nil)
}

func echoFactory() WorkerFactory {
	return WorkerFactoryFunc(func(h Handler) (Worker, error) {
		return &echoWorker{handler: h}, nil
	})
}

// tickWorker reports activity and emits "tick" on every Tick
type tickWorker struct {
	echoWorker
}

func (w *tickWorker) Tick() (bool, error) {
	if err := w.handler(protocol.Text("tick"), nil); err != nil {
		return false, err
	}
	return true, nil
}

// aliveWorker flips alive to false in its Destroy hook
type aliveWorker struct {
	echoWorker
	alive *atomic.Bool
}

func (w *aliveWorker) Destroy() error {
	w.alive.Store(false)
	return nil
}

var errBoom = errors.New("boom")

func failingFactory(calls *atomic.Int32) WorkerFactory {
	return WorkerFactoryFunc(func(Handler) (Worker, error) {
		calls.Add(1)
		return nil, errBoom
	})
}

// collector gathers handler events
type collector struct {
	msgs chan protocol.Message
	errs chan error
}

func newCollector() *collector {
	return &collector{
		msgs: make(chan protocol.Message, 1024),
		errs: make(chan error, 1024),
	}
}

func (c *collector) handle(msg protocol.Message, err error) error {
	if err != nil {
		c.errs <- err
		return nil
	}
	c.msgs <- msg
	return nil
}

func (c *collector) next(t *testing.T, timeout time.Duration) protocol.Message {
	t.Helper()
	select {
	case m := <-c.msgs:
		return m
	case <-time.After(timeout):
		t.Fatalf("Expected a message within %v", timeout)
		return protocol.Message{}
	}
}

func (c *collector) nextErr(t *testing.T, timeout time.Duration) error {
	t.Helper()
	select {
	case err := <-c.errs:
		return err
	case <-time.After(timeout):
		t.Fatalf("Expected an error event within %v", timeout)
		return nil
	}
}

// syncBuffer is a goroutine-safe log sink
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
