package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/JamaalDavis/holochain-rust/internal/azure"
	"github.com/JamaalDavis/holochain-rust/internal/config"
	"github.com/JamaalDavis/holochain-rust/internal/logging"
	"github.com/JamaalDavis/holochain-rust/internal/netconn"
	"github.com/JamaalDavis/holochain-rust/internal/relay"
)

// newFactory builds the worker factory for the configured transport. The
// returned closer releases the transport and is never nil.
func newFactory(c *config.Config, log *logging.Logger) (netconn.WorkerFactory, io.Closer, error) {
	switch c.Transport {
	case config.ModeMemory:
		return relay.NewPongFactory(), nopCloser{}, nil

	case config.ModeWebSocket:
		sender, err := relay.NewWebSocketSender(&relay.WebSocketSenderOptions{URL: c.WebSocketURL})
		if err != nil {
			return nil, nil, fmt.Errorf("websocket transport: %w", err)
		}
		return &relay.DialFactory{Sender: sender, Logger: log}, sender, nil

	case config.ModeAzure:
		sender, err := newAzureSender(c)
		if err != nil {
			return nil, nil, fmt.Errorf("azure transport: %w", err)
		}
		return &relay.DialFactory{Sender: sender, Logger: log}, sender, nil

	default:
		return nil, nil, fmt.Errorf("unsupported transport %q", c.Transport)
	}
}

func newAzureSender(c *config.Config) (*relay.AzureSender, error) {
	var tokens azure.TokenProvider
	if c.UsesSAS() {
		p, err := azure.NewSASTokenProvider(&azure.SASTokenOptions{
			Namespace:        c.RelayNamespace,
			HybridConnection: c.HybridConnection,
			KeyName:          c.RelayKeyName,
			Key:              c.RelayKey,
		})
		if err != nil {
			return nil, err
		}
		tokens = p
	} else {
		p, err := azure.NewManagedIdentityTokenProvider()
		if err != nil {
			return nil, err
		}
		tokens = p
	}

	var provisioner *azure.Provisioner
	if c.Provisioning() {
		namespace, _, _ := strings.Cut(azure.NamespaceHost(c.RelayNamespace), ".")
		p, err := azure.NewProvisioner(&azure.ProvisionerOptions{
			SubscriptionID:    c.SubscriptionID,
			ResourceGroupName: c.ResourceGroup,
			NamespaceName:     namespace,
		})
		if err != nil {
			return nil, err
		}
		provisioner = p
	}

	return relay.NewAzureSender(&relay.AzureSenderOptions{
		RelayEndpoint:        c.RelayNamespace,
		HybridConnectionName: c.HybridConnection,
		Tokens:               tokens,
		Provisioner:          provisioner,
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
