package relay

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
)

type staticTokens string

func (s staticTokens) Token(context.Context) (string, error) { return string(s), nil }

type failingTokens struct{}

func (failingTokens) Token(context.Context) (string, error) { return "", errors.New("no token") }

func TestNewAzureSender(t *testing.T) {
	tests := []struct {
		name    string
		opts    *AzureSenderOptions
		wantErr bool
	}{
		{
			name: "valid options",
			opts: &AzureSenderOptions{
				RelayEndpoint:        "myrelay.servicebus.windows.net",
				HybridConnectionName: "hc-12345",
				Tokens:               staticTokens("test-token"),
			},
		},
		{
			name:    "nil options",
			opts:    nil,
			wantErr: true,
		},
		{
			name: "missing relay endpoint",
			opts: &AzureSenderOptions{
				HybridConnectionName: "hc-12345",
				Tokens:               staticTokens("test-token"),
			},
			wantErr: true,
		},
		{
			name: "missing hybrid connection name",
			opts: &AzureSenderOptions{
				RelayEndpoint: "myrelay.servicebus.windows.net",
				Tokens:        staticTokens("test-token"),
			},
			wantErr: true,
		},
		{
			name: "missing token provider",
			opts: &AzureSenderOptions{
				RelayEndpoint:        "myrelay.servicebus.windows.net",
				HybridConnectionName: "hc-12345",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := NewAzureSender(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewAzureSender() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && sender == nil {
				t.Error("NewAzureSender() returned nil sender")
			}
		})
	}
}

func TestAzureSender_ConnectRequest(t *testing.T) {
	sender, err := NewAzureSender(&AzureSenderOptions{
		RelayEndpoint:        "myrelay",
		HybridConnectionName: "hc-1",
		Tokens:               staticTokens("unused"),
	})
	if err != nil {
		t.Fatalf("NewAzureSender() error = %v", err)
	}

	t.Run("sas token in query", func(t *testing.T) {
		sas := "SharedAccessSignature sr=x&sig=y&se=1&skn=z"
		raw, headers := sender.connectRequest(sas)

		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("Invalid URL %q: %v", raw, err)
		}
		if u.Scheme != "wss" || u.Host != "myrelay.servicebus.windows.net" {
			t.Errorf("Unexpected endpoint: %s", raw)
		}
		if u.Path != "/$hc/hc-1" {
			t.Errorf("Expected path /$hc/hc-1, got: %s", u.Path)
		}
		if u.Query().Get("sb-hc-action") != "connect" {
			t.Errorf("Expected connect action, got: %s", u.Query().Get("sb-hc-action"))
		}
		if u.Query().Get("sb-hc-token") != sas {
			t.Errorf("Expected SAS token in query, got: %s", u.Query().Get("sb-hc-token"))
		}
		if headers.Get("Authorization") != "" {
			t.Error("Expected no Authorization header for SAS")
		}
	})

	t.Run("bearer token in header", func(t *testing.T) {
		raw, headers := sender.connectRequest("eyJ0eXAi")
		if strings.Contains(raw, "sb-hc-token") {
			t.Errorf("Expected no token in query, got: %s", raw)
		}
		if headers.Get("Authorization") != "Bearer eyJ0eXAi" {
			t.Errorf("Expected bearer header, got: %s", headers.Get("Authorization"))
		}
	})
}

func TestAzureSender_DialErrors(t *testing.T) {
	sender, err := NewAzureSender(&AzureSenderOptions{
		RelayEndpoint:        "myrelay.servicebus.windows.net",
		HybridConnectionName: "hc-12345",
		Tokens:               failingTokens{},
	})
	if err != nil {
		t.Fatalf("NewAzureSender() error = %v", err)
	}

	if _, err := sender.Dial(context.Background()); err == nil || !strings.Contains(err.Error(), "token") {
		t.Errorf("Expected token error, got: %v", err)
	}

	if err := sender.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("Close() second time error = %v", err)
	}
	if _, err := sender.Dial(context.Background()); !errors.Is(err, ErrSenderClosed) {
		t.Errorf("Expected ErrSenderClosed, got: %v", err)
	}
}
