package azure

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/relay/armrelay"
)

// Provisioner creates and removes hybrid connections in a Relay namespace
type Provisioner struct {
	client            *armrelay.HybridConnectionsClient
	resourceGroupName string
	namespaceName     string

	mu      sync.Mutex
	ensured map[string]bool
}

// ProvisionerOptions configures a Provisioner
type ProvisionerOptions struct {
	SubscriptionID    string
	ResourceGroupName string
	NamespaceName     string

	// Credential defaults to DefaultAzureCredential
	Credential azcore.TokenCredential

	// ClientOptions configures the ARM client (optional)
	ClientOptions *arm.ClientOptions
}

// NewProvisioner validates opts and builds the ARM client
func NewProvisioner(opts *ProvisionerOptions) (*Provisioner, error) {
	if opts == nil {
		return nil, errors.New("azure: options cannot be nil")
	}
	if opts.SubscriptionID == "" {
		return nil, errors.New("azure: subscription ID is required")
	}
	if opts.ResourceGroupName == "" {
		return nil, errors.New("azure: resource group name is required")
	}
	if opts.NamespaceName == "" {
		return nil, errors.New("azure: namespace name is required")
	}

	credential := opts.Credential
	if credential == nil {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("azure: create default credential: %w", err)
		}
		credential = cred
	}

	client, err := armrelay.NewHybridConnectionsClient(opts.SubscriptionID, credential, opts.ClientOptions)
	if err != nil {
		return nil, fmt.Errorf("azure: create hybrid connections client: %w", err)
	}

	return &Provisioner{
		client:            client,
		resourceGroupName: opts.ResourceGroupName,
		namespaceName:     opts.NamespaceName,
		ensured:           make(map[string]bool),
	}, nil
}

// EnsureHybridConnection creates or updates name once per Provisioner.
// Client authorization is disabled so namespace-level SAS tokens work.
func (p *Provisioner) EnsureHybridConnection(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ensured[name] {
		return nil
	}

	props := armrelay.HybridConnection{
		Properties: &armrelay.HybridConnectionProperties{
			RequiresClientAuthorization: ptr(false),
		},
	}
	if _, err := p.client.CreateOrUpdate(ctx, p.resourceGroupName, p.namespaceName, name, props, nil); err != nil {
		return fmt.Errorf("azure: create hybrid connection %q: %w", name, err)
	}
	p.ensured[name] = true
	return nil
}

// DeleteHybridConnection removes name from the namespace
func (p *Provisioner) DeleteHybridConnection(ctx context.Context, name string) error {
	if _, err := p.client.Delete(ctx, p.resourceGroupName, p.namespaceName, name, nil); err != nil {
		return fmt.Errorf("azure: delete hybrid connection %q: %w", name, err)
	}
	p.mu.Lock()
	delete(p.ensured, name)
	p.mu.Unlock()
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
