package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JamaalDavis/holochain-rust/internal/azure"
)

// AzureSender dials an Azure Relay hybrid connection
type AzureSender struct {
	relayEndpoint        string
	hybridConnectionName string
	tokens               azure.TokenProvider
	provisioner          *azure.Provisioner
	dialer               websocket.Dialer
	mu                   sync.Mutex
	closed               bool
}

// AzureSenderOptions contains configuration for AzureSender
type AzureSenderOptions struct {
	RelayEndpoint        string              // e.g., "myrelay.servicebus.windows.net"
	HybridConnectionName string              // e.g., "hc-holonet"
	Tokens               azure.TokenProvider // SAS or Entra ID token source
	Provisioner          *azure.Provisioner  // creates the hybrid connection on first dial (optional)
}

// NewAzureSender validates opts and returns a sender
func NewAzureSender(opts *AzureSenderOptions) (*AzureSender, error) {
	if opts == nil {
		return nil, errors.New("options cannot be nil")
	}
	if opts.RelayEndpoint == "" {
		return nil, errors.New("relay endpoint is required")
	}
	if opts.HybridConnectionName == "" {
		return nil, errors.New("hybrid connection name is required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("token provider is required")
	}

	return &AzureSender{
		relayEndpoint:        azure.NamespaceHost(opts.RelayEndpoint),
		hybridConnectionName: opts.HybridConnectionName,
		tokens:               opts.Tokens,
		provisioner:          opts.Provisioner,
		dialer:               websocket.Dialer{HandshakeTimeout: 30 * time.Second},
	}, nil
}

// connectRequest builds the sender URL and handshake headers for token.
// SAS tokens travel in the query string, Entra ID tokens as a bearer header.
func (s *AzureSender) connectRequest(token string) (string, http.Header) {
	u := url.URL{
		Scheme: "wss",
		Host:   s.relayEndpoint,
		Path:   "/$hc/" + s.hybridConnectionName,
	}
	q := u.Query()
	q.Set("sb-hc-action", "connect")
	headers := http.Header{}
	if azure.IsSASToken(token) {
		q.Set("sb-hc-token", token)
	} else {
		headers.Set("Authorization", "Bearer "+token)
	}
	u.RawQuery = q.Encode()
	return u.String(), headers
}

// Dial connects to the listener on the other side of the hybrid connection
func (s *AzureSender) Dial(ctx context.Context) (Connection, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSenderClosed
	}
	s.mu.Unlock()

	if s.provisioner != nil {
		if err := s.provisioner.EnsureHybridConnection(ctx, s.hybridConnectionName); err != nil {
			return nil, err
		}
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get relay token: %w", err)
	}

	wsURL, headers := s.connectRequest(token)
	conn, resp, err := s.dialer.DialContext(ctx, wsURL, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to relay (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect to relay: %w", err)
	}
	return newWSConnection(conn), nil
}

// Close closes the sender
func (s *AzureSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Sender = (*AzureSender)(nil)
