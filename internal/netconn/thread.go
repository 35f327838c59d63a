package netconn

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/JamaalDavis/holochain-rust/internal/logging"
	"github.com/JamaalDavis/holochain-rust/internal/protocol"
)

// State is the lifecycle stage of a Thread relay
type State int

const (
	// StateRunning means the poll loop is alive and accepting messages
	StateRunning State = iota
	// StateShuttingDown means Destroy was requested and the loop has not exited yet
	StateShuttingDown
	// StateTerminated means the loop exited and the Worker was destroyed
	StateTerminated
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Thread is a Connection whose Worker lives on a dedicated goroutine.
// Send only enqueues; the goroutine feeds queued messages to Receive and
// calls Tick on every iteration, sleeping between iterations according to
// an adaptive Backoff.
type Thread struct {
	id      string
	logger  *logging.Logger
	metrics *Metrics

	running atomic.Bool
	queue   queue
	done    chan struct{}

	// fault is written before done is closed
	fault error
}

// NewThread spawns the poll goroutine and builds the Worker on it.
// It returns once construction has finished; a construction failure leaves
// nothing running.
func NewThread(handler Handler, factory WorkerFactory, opts *Options) (*Thread, error) {
	opts = opts.withDefaults()
	id := uuid.NewString()

	t := &Thread{
		id:      id,
		logger:  opts.Logger.With(logging.String("relay_id", id), logging.String("relay_kind", "thread")),
		metrics: opts.Metrics,
		done:    make(chan struct{}),
	}
	t.running.Store(true)

	ready := make(chan error, 1)
	go t.run(handler, factory, opts, ready)

	if err := <-ready; err != nil {
		<-t.done
		t.logger.Error("Worker construction failed", logging.Error(err))
		return nil, err
	}
	t.logger.Debug("Relay thread started",
		logging.Duration("min_poll", opts.MinPoll),
		logging.Duration("max_poll", opts.MaxPoll))
	return t, nil
}

// ID returns the relay's unique identifier
func (t *Thread) ID() string {
	return t.id
}

// State reports where the relay is in its lifecycle. StateShuttingDown
// means the Worker may still be running; it is released only at
// StateTerminated.
func (t *Thread) State() State {
	select {
	case <-t.done:
		return StateTerminated
	default:
	}
	if t.running.Load() {
		return StateRunning
	}
	return StateShuttingDown
}

// Done is closed once the poll goroutine has exited and the Worker has
// been destroyed. After Shutdown returns a context error, wait on Done
// before treating the Worker's resources as released.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Pending returns the number of messages queued but not yet delivered
func (t *Thread) Pending() int {
	return t.queue.len()
}

// Send enqueues msg for delivery and returns immediately
func (t *Thread) Send(msg protocol.Message) error {
	if !t.running.Load() {
		return fmt.Errorf("%w: %w", ErrSend, errRelayDestroyed)
	}
	if !t.queue.push(msg) {
		return fmt.Errorf("%w: %w", ErrSend, errRelayDestroyed)
	}
	t.metrics.messageSent()
	return nil
}

// Destroy stops the poll loop and waits for the goroutine to exit.
// The wait is bounded by the current backoff sleep. It returns ErrJoin if
// the Worker panicked.
func (t *Thread) Destroy() error {
	return t.Shutdown(context.Background())
}

// Shutdown is Destroy with a deadline on the wait. If ctx ends first the
// loop still stops on its own and ctx's error is returned; the Worker is
// not released until Done is closed.
func (t *Thread) Shutdown(ctx context.Context) error {
	if t.running.CompareAndSwap(true, false) {
		t.logger.Debug("Relay destroy requested")
	}
	select {
	case <-t.done:
		return t.fault
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Thread) run(handler Handler, factory WorkerFactory, opts *Options, ready chan<- error) {
	defer close(t.done)
	defer t.queue.close()

	if !opts.SharedThread {
		// Never unlocked: the OS thread exits with this goroutine.
		runtime.LockOSThread()
	}

	worker, err := construct(handler, factory)
	if err != nil {
		t.running.Store(false)
		ready <- err
		return
	}
	t.metrics.relayStarted()
	defer t.metrics.relayStopped()
	ready <- nil

	fault := t.poll(worker, handler, opts)

	if dropped := t.queue.close(); dropped > 0 {
		t.logger.Debug("Dropped undelivered messages", logging.Int("count", dropped))
	}

	if err := t.destroyWorker(worker, handler); err != nil && fault == nil {
		fault = err
	}
	t.fault = fault

	if fault != nil {
		t.logger.Error("Relay thread faulted", logging.Error(fault))
		return
	}
	t.logger.Debug("Relay thread terminated")
}

// poll runs until the shutdown flag is cleared. A panic in the Worker ends
// the loop and is returned as ErrJoin.
func (t *Thread) poll(worker Worker, handler Handler, opts *Options) (fault error) {
	defer func() {
		if r := recover(); r != nil {
			t.running.Store(false)
			fault = fmt.Errorf("%w: worker panicked: %v", ErrJoin, r)
		}
	}()

	backoff := NewBackoff(opts.MinPoll, opts.MaxPoll)
	for t.running.Load() {
		active := false

		if msg, ok := t.queue.tryPop(); ok {
			active = true
			if err := worker.Receive(msg); err != nil {
				t.deliveryFailed(handler, "receive", err)
			} else {
				t.metrics.messageDelivered()
			}
		}

		busy, err := worker.Tick()
		if err != nil {
			t.deliveryFailed(handler, "tick", err)
		} else if busy {
			active = true
			t.metrics.tickActive()
		}

		d := backoff.Next(active)
		t.metrics.slept(d)
		opts.sleep(d)
	}
	return nil
}

func (t *Thread) destroyWorker(worker Worker, handler Handler) (fault error) {
	defer func() {
		if r := recover(); r != nil {
			fault = fmt.Errorf("%w: worker destroy panicked: %v", ErrJoin, r)
		}
	}()

	if err := worker.Destroy(); err != nil {
		t.deliveryFailed(handler, "destroy", err)
	}
	return nil
}

// deliveryFailed routes a Worker hook failure to the handler as an error event
func (t *Thread) deliveryFailed(handler Handler, op string, err error) {
	t.metrics.deliveryFailed(op)
	derr := deliveryError(op, err)
	t.logger.Warn("Worker hook failed", logging.String("op", op), logging.Error(err))
	if herr := handler(protocol.Message{}, derr); herr != nil {
		t.logger.Error("Handler rejected delivery failure",
			logging.String("op", op),
			logging.Error(herr))
	}
}
