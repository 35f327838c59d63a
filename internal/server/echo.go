package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JamaalDavis/holochain-rust/internal/logging"
	"github.com/JamaalDavis/holochain-rust/internal/netconn"
	"github.com/JamaalDavis/holochain-rust/internal/protocol"
	"github.com/JamaalDavis/holochain-rust/internal/relay"
)

// Echo accepts connections and drives each one with its own netconn.Thread.
// Every message a peer sends is written back; pings are answered with pongs.
type Echo struct {
	listener relay.Listener
	logger   *logging.Logger
	opts     *netconn.Options

	mu     sync.Mutex
	peers  map[string]*echoPeer
	wg     sync.WaitGroup
	closed bool
}

// echoPeer is one accepted connection
type echoPeer struct {
	thread *netconn.Thread
	ready  chan struct{}
	gone   chan struct{}
	once   sync.Once
}

// NewEcho returns an Echo serving listener. opts configures every relay it
// creates and may be nil.
func NewEcho(listener relay.Listener, opts *netconn.Options) *Echo {
	logger := logging.Nop()
	if opts != nil && opts.Logger != nil {
		logger = opts.Logger
	}
	return &Echo{
		listener: listener,
		logger:   logger,
		opts:     opts,
		peers:    make(map[string]*echoPeer),
	}
}

// Run accepts connections until ctx is done or the listener is closed
func (e *Echo) Run(ctx context.Context) error {
	for {
		conn, err := e.listener.Accept(ctx)
		if err != nil {
			if errors.Is(err, relay.ErrListenerClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := e.serve(conn); err != nil {
			e.logger.Warn("Failed to start peer relay", logging.Error(err))
		}
	}
}

func (e *Echo) serve(conn relay.Connection) error {
	p := &echoPeer{ready: make(chan struct{}), gone: make(chan struct{})}

	thread, err := netconn.NewThread(p.handle(e.logger), relay.NewConnFactory(conn, e.logger), e.opts)
	if err != nil {
		_ = conn.Close()
		return err
	}
	p.thread = thread
	close(p.ready)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return thread.Destroy()
	}
	e.peers[thread.ID()] = p
	e.wg.Add(1)
	e.mu.Unlock()

	e.logger.Info("Peer connected", logging.String("relay_id", thread.ID()))

	go func() {
		defer e.wg.Done()
		<-p.gone
		if err := thread.Destroy(); err != nil {
			e.logger.Warn("Peer relay ended abnormally", logging.String("relay_id", thread.ID()), logging.Error(err))
		}
		e.mu.Lock()
		delete(e.peers, thread.ID())
		e.mu.Unlock()
		e.logger.Info("Peer disconnected", logging.String("relay_id", thread.ID()))
	}()
	return nil
}

// handle runs on the peer's relay goroutine. It must not destroy the relay
// itself, so a closed stream only signals gone.
func (p *echoPeer) handle(logger *logging.Logger) netconn.Handler {
	return func(msg protocol.Message, err error) error {
		if err != nil {
			if errors.Is(err, relay.ErrStreamClosed) {
				p.close()
				return nil
			}
			logger.Debug("Peer delivery failed", logging.Error(err))
			return nil
		}

		<-p.ready
		reply := msg
		if pong, ok := protocol.Pong(msg, time.Now()); ok {
			reply = pong
		}
		return p.thread.Send(reply)
	}
}

func (p *echoPeer) close() {
	p.once.Do(func() { close(p.gone) })
}

// Peers returns the number of connected peers
func (e *Echo) Peers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.peers)
}

// Close destroys every peer relay and waits for them to finish
func (e *Echo) Close() {
	e.mu.Lock()
	e.closed = true
	for _, p := range e.peers {
		p.close()
	}
	e.mu.Unlock()
	e.wg.Wait()
}
