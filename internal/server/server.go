package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JamaalDavis/holochain-rust/internal/logging"
	"github.com/JamaalDavis/holochain-rust/internal/netconn"
	"github.com/JamaalDavis/holochain-rust/internal/relay"
)

// PeerPath is where peers open their websocket
const PeerPath = "/peer"

// Server is the HTTP front of an echo peer: websocket upgrades on PeerPath,
// a health check and Prometheus metrics
type Server struct {
	server   *http.Server
	listener *relay.WebSocketListener
	echo     *Echo
	logger   *logging.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// Options configures the server
type Options struct {
	Addr string

	// Relay configures each peer relay; its Logger is also used for the server
	Relay *netconn.Options

	// Gatherer backs /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer
}

// NewServer creates a new server instance
func NewServer(opts *Options) *Server {
	if opts == nil {
		opts = &Options{Addr: ":8080"}
	}
	logger := logging.Nop()
	if opts.Relay != nil && opts.Relay.Logger != nil {
		logger = opts.Relay.Logger
	}

	listener := relay.NewWebSocketListener(opts.Addr, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", HealthHandler)
	mux.Handle(PeerPath, listener)
	if opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return &Server{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           RequestID(Logger(logger)(mux)),
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
		echo:     NewEcho(listener, opts.Relay),
		logger:   logger,
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins accepting peers. It is called by ListenAndServe and Serve;
// tests mounting Handler on their own server call it directly.
func (s *Server) Start() {
	if s.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.echo.Run(ctx); err != nil {
			s.logger.Error("Accept loop failed", logging.Error(err))
		}
	}()
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.Start()
	return s.server.ListenAndServe()
}

// Serve accepts HTTP connections on l
func (s *Server) Serve(l net.Listener) error {
	s.Start()
	return s.server.Serve(l)
}

// Shutdown stops accepting peers, destroys the connected ones and then
// gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.stopPeers()
	if serr := s.server.Shutdown(ctx); serr != nil {
		return errors.Join(err, serr)
	}
	return err
}

// Close immediately closes the server
func (s *Server) Close() error {
	err := s.stopPeers()
	return errors.Join(err, s.server.Close())
}

// Peers returns the number of connected peers
func (s *Server) Peers() int {
	return s.echo.Peers()
}

// Addr returns the address the server is configured to listen on
func (s *Server) Addr() string {
	return s.server.Addr
}

func (s *Server) stopPeers() error {
	err := s.listener.Close()
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.echo.Close()
	return err
}
