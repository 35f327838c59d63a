package azure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// refreshMargin is how long before expiry a cached token is replaced
const refreshMargin = 5 * time.Minute

// RelayScope is the Entra ID scope for Azure Relay
const RelayScope = "https://relay.azure.net/.default"

// TokenProvider supplies the credential presented when dialing a hybrid connection
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// SASTokenProvider signs hybrid connection tokens with a shared access key
type SASTokenProvider struct {
	uri     string
	keyName string
	key     string
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// SASTokenOptions configures a SASTokenProvider
type SASTokenOptions struct {
	Namespace        string        // e.g. "myrelay" or "myrelay.servicebus.windows.net"
	HybridConnection string        // e.g. "hc-holonet"
	KeyName          string        // shared access policy name
	Key              string        // base64 shared access key
	TTL              time.Duration // token lifetime, default 1h
}

// NewSASTokenProvider validates opts and returns a provider
func NewSASTokenProvider(opts *SASTokenOptions) (*SASTokenProvider, error) {
	if opts == nil {
		return nil, errors.New("azure: options cannot be nil")
	}
	if opts.Namespace == "" {
		return nil, errors.New("azure: namespace is required")
	}
	if opts.HybridConnection == "" {
		return nil, errors.New("azure: hybrid connection name is required")
	}
	if opts.KeyName == "" || opts.Key == "" {
		return nil, errors.New("azure: key name and key are required")
	}
	ttl := opts.TTL
	if ttl <= refreshMargin {
		ttl = time.Hour
	}
	return &SASTokenProvider{
		uri:     HybridConnectionURI(opts.Namespace, opts.HybridConnection),
		keyName: opts.KeyName,
		key:     opts.Key,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Token returns a cached SAS token, re-signing it near expiry
func (p *SASTokenProvider) Token(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.token != "" && p.expiresAt.Sub(now) > refreshMargin {
		return p.token, nil
	}

	expiresAt := now.Add(p.ttl)
	token, err := generateSASToken(p.uri, p.keyName, p.key, expiresAt)
	if err != nil {
		return "", err
	}
	p.token = token
	p.expiresAt = expiresAt
	return token, nil
}

// ManagedIdentityTokenProvider provides Entra ID tokens for Azure Relay.
// It caches the token and refreshes it before expiry.
type ManagedIdentityTokenProvider struct {
	credential azcore.TokenCredential
	scope      string

	mu    sync.RWMutex
	token *azcore.AccessToken
}

// NewManagedIdentityTokenProvider uses DefaultAzureCredential, which tries
// managed identity, environment variables and the Azure CLI in turn
func NewManagedIdentityTokenProvider() (*ManagedIdentityTokenProvider, error) {
	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure: create credential: %w", err)
	}
	return NewCredentialTokenProvider(credential), nil
}

// NewCredentialTokenProvider wraps an existing credential
func NewCredentialTokenProvider(credential azcore.TokenCredential) *ManagedIdentityTokenProvider {
	return &ManagedIdentityTokenProvider{
		credential: credential,
		scope:      RelayScope,
	}
}

// Token returns a valid access token, using the cache when possible
func (p *ManagedIdentityTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.RLock()
	if p.token != nil && time.Until(p.token.ExpiresOn) > refreshMargin {
		token := p.token.Token
		p.mu.RUnlock()
		return token, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != nil && time.Until(p.token.ExpiresOn) > refreshMargin {
		return p.token.Token, nil
	}

	resp, err := p.credential.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{p.scope},
	})
	if err != nil {
		return "", fmt.Errorf("azure: get token: %w", err)
	}
	p.token = &resp
	return resp.Token, nil
}

var (
	_ TokenProvider = (*SASTokenProvider)(nil)
	_ TokenProvider = (*ManagedIdentityTokenProvider)(nil)
)
