package netconn

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/JamaalDavis/holochain-rust/internal/logging"
	"github.com/JamaalDavis/holochain-rust/internal/protocol"
)

// Relay is a Connection that drives its Worker inline on the caller's
// goroutine. Concurrent callers are serialized so the Worker only ever sees
// one hook at a time.
type Relay struct {
	id      string
	logger  *logging.Logger
	metrics *Metrics

	mu        sync.Mutex
	worker    Worker
	destroyed bool
}

// NewRelay builds the Worker on the calling goroutine
func NewRelay(handler Handler, factory WorkerFactory, opts *Options) (*Relay, error) {
	opts = opts.withDefaults()
	id := uuid.NewString()
	logger := opts.Logger.With(logging.String("relay_id", id), logging.String("relay_kind", "sync"))

	worker, err := construct(handler, factory)
	if err != nil {
		logger.Error("Worker construction failed", logging.Error(err))
		return nil, err
	}

	logger.Debug("Relay created")
	return &Relay{
		id:      id,
		logger:  logger,
		metrics: opts.Metrics,
		worker:  worker,
	}, nil
}

// ID returns the relay's unique identifier
func (r *Relay) ID() string {
	return r.id
}

// Send calls the Worker's Receive and returns once it has completed
func (r *Relay) Send(msg protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return fmt.Errorf("%w: %w", ErrSend, errRelayDestroyed)
	}
	r.metrics.messageSent()
	if err := r.worker.Receive(msg); err != nil {
		r.metrics.deliveryFailed("receive")
		return deliveryError("receive", err)
	}
	r.metrics.messageDelivered()
	return nil
}

// Tick lets the owner poll the Worker on its own schedule
func (r *Relay) Tick() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return false, fmt.Errorf("%w: %w", ErrDelivery, errRelayDestroyed)
	}
	active, err := r.worker.Tick()
	if err != nil {
		r.metrics.deliveryFailed("tick")
		return false, deliveryError("tick", err)
	}
	if active {
		r.metrics.tickActive()
	}
	return active, nil
}

// Destroy releases the Worker. Calls after the first are no-ops.
func (r *Relay) Destroy() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return nil
	}
	r.destroyed = true
	worker := r.worker
	r.worker = nil

	if err := worker.Destroy(); err != nil {
		r.metrics.deliveryFailed("destroy")
		r.logger.Warn("Worker destroy failed", logging.Error(err))
		return deliveryError("destroy", err)
	}
	r.logger.Debug("Relay destroyed")
	return nil
}

// construct calls the factory, turning a nil result or a panic into
// ErrConstruction
func construct(handler Handler, factory WorkerFactory) (worker Worker, err error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: handler is required", ErrConstruction)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: factory is required", ErrConstruction)
	}

	defer func() {
		if r := recover(); r != nil {
			worker = nil
			err = fmt.Errorf("%w: factory panicked: %v", ErrConstruction, r)
		}
	}()

	worker, err = factory.New(handler)
	if err != nil {
		if errors.Is(err, ErrConstruction) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrConstruction, err)
	}
	if worker == nil {
		return nil, fmt.Errorf("%w: factory returned no worker", ErrConstruction)
	}
	return worker, nil
}
