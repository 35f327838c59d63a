package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JamaalDavis/holochain-rust/internal/logging"
)

// wsConnection adapts a message-oriented websocket to a byte stream.
// Each Write is sent as one binary message.
type wsConnection struct {
	conn *websocket.Conn

	rmu    sync.Mutex
	buffer []byte

	wmu    sync.Mutex
	mu     sync.Mutex
	closed bool
}

func newWSConnection(conn *websocket.Conn) *wsConnection {
	return &wsConnection{conn: conn}
}

func (c *wsConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Read reads data from the connection
func (c *wsConnection) Read(p []byte) (int, error) {
	if c.isClosed() {
		return 0, ErrConnectionClosed
	}

	c.rmu.Lock()
	defer c.rmu.Unlock()

	if len(c.buffer) > 0 {
		n := copy(p, c.buffer)
		c.buffer = c.buffer[n:]
		return n, nil
	}

	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		return 0, err
	}
	if messageType != websocket.BinaryMessage {
		return 0, fmt.Errorf("relay: unexpected websocket message type: %d", messageType)
	}

	n := copy(p, data)
	if n < len(data) {
		c.buffer = data[n:]
	}
	return n, nil
}

// Write writes data to the connection
func (c *wsConnection) Write(p []byte) (int, error) {
	if c.isClosed() {
		return 0, ErrConnectionClosed
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a close frame and closes the underlying connection
func (c *wsConnection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wmu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.conn.Close()
}

// WebSocketSender dials a websocket endpoint
type WebSocketSender struct {
	url    string
	header http.Header
	dialer websocket.Dialer
	mu     sync.Mutex
	closed bool
}

// WebSocketSenderOptions contains configuration for a WebSocketSender
type WebSocketSenderOptions struct {
	URL              string      // ws:// or wss:// endpoint
	Header           http.Header // extra handshake headers (optional)
	HandshakeTimeout time.Duration
}

// NewWebSocketSender validates opts and returns a sender
func NewWebSocketSender(opts *WebSocketSenderOptions) (*WebSocketSender, error) {
	if opts == nil {
		return nil, errors.New("options cannot be nil")
	}
	if opts.URL == "" {
		return nil, errors.New("url is required")
	}
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebSocketSender{
		url:    u.String(),
		header: opts.Header,
		dialer: websocket.Dialer{HandshakeTimeout: timeout},
	}, nil
}

// Dial opens a websocket to the configured URL
func (s *WebSocketSender) Dial(ctx context.Context) (Connection, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSenderClosed
	}
	s.mu.Unlock()

	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return newWSConnection(conn), nil
}

// Close closes the sender
func (s *WebSocketSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// WebSocketListener is an http.Handler that upgrades requests into
// connections handed out by Accept
type WebSocketListener struct {
	addr        string
	id          string
	upgrader    websocket.Upgrader
	acceptQueue chan Connection
	logger      *logging.Logger
	mu          sync.Mutex
	closed      bool
}

// NewWebSocketListener creates a listener; mount it on an HTTP server at addr
func NewWebSocketListener(addr string, logger *logging.Logger) *WebSocketListener {
	return &WebSocketListener{
		addr:        addr,
		id:          uuid.NewString(),
		upgrader:    websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		acceptQueue: make(chan Connection, 10),
		logger:      logger,
	}
}

// ServeHTTP upgrades the request and queues the connection for Accept.
// When the accept queue is full the connection is closed.
func (l *WebSocketListener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		http.Error(w, ErrListenerClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("Websocket upgrade failed", logging.Error(err))
		}
		return
	}
	wc := newWSConnection(conn)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		_ = wc.Close()
		return
	}
	select {
	case l.acceptQueue <- wc:
		if l.logger != nil {
			l.logger.Debug("Websocket connection queued",
				logging.String("listener_id", l.id),
				logging.String("remote_addr", r.RemoteAddr))
		}
	default:
		if l.logger != nil {
			l.logger.Warn("Accept queue full, dropping connection", logging.String("listener_id", l.id))
		}
		_ = wc.Close()
	}
}

// Accept waits for and returns the next connection
func (l *WebSocketListener) Accept(ctx context.Context) (Connection, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrListenerClosed
	}
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case conn, ok := <-l.acceptQueue:
		if !ok {
			return nil, ErrListenerClosed
		}
		return conn, nil
	}
}

// Addr returns the address the listener was created for
func (l *WebSocketListener) Addr() string {
	return l.addr
}

// Close closes the listener and any connections not yet accepted
func (l *WebSocketListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.acceptQueue)
	for conn := range l.acceptQueue {
		_ = conn.Close()
	}
	return nil
}

var (
	_ Connection = (*wsConnection)(nil)
	_ Sender     = (*WebSocketSender)(nil)
	_ Listener   = (*WebSocketListener)(nil)
)
