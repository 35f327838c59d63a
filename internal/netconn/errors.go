package netconn

import (
	"errors"
	"fmt"
)

var (
	// ErrConstruction is returned when a WorkerFactory cannot build a Worker
	ErrConstruction = errors.New("netconn: worker construction failed")
	// ErrSend is returned when a message cannot be handed to the relay
	ErrSend = errors.New("netconn: send failed")
	// ErrDelivery wraps a Receive, Tick or Destroy failure of a Worker
	ErrDelivery = errors.New("netconn: delivery failed")
	// ErrJoin is returned by Thread.Destroy when the poll goroutine faulted
	ErrJoin = errors.New("netconn: relay thread did not terminate cleanly")

	errRelayDestroyed = errors.New("relay destroyed")
)

// deliveryError attaches the failing hook name to a worker error
func deliveryError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDelivery, op, err)
}
