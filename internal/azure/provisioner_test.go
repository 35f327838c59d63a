package azure

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	azfake "github.com/Azure/azure-sdk-for-go/sdk/azcore/fake"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/relay/armrelay"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/relay/armrelay/fake"
)

type hybridConnectionCalls struct {
	created    []string
	deleted    []string
	clientAuth []bool
}

func newFakeProvisioner(t *testing.T, calls *hybridConnectionCalls, failCreate bool) *Provisioner {
	t.Helper()

	server := fake.HybridConnectionsServer{
		CreateOrUpdate: func(ctx context.Context, resourceGroupName, namespaceName, hybridConnectionName string,
			parameters armrelay.HybridConnection, options *armrelay.HybridConnectionsClientCreateOrUpdateOptions,
		) (resp azfake.Responder[armrelay.HybridConnectionsClientCreateOrUpdateResponse], errResp azfake.ErrorResponder) {
			if failCreate {
				errResp.SetResponseError(http.StatusConflict, "Conflict")
				return
			}
			calls.created = append(calls.created, resourceGroupName+"/"+namespaceName+"/"+hybridConnectionName)
			if parameters.Properties != nil && parameters.Properties.RequiresClientAuthorization != nil {
				calls.clientAuth = append(calls.clientAuth, *parameters.Properties.RequiresClientAuthorization)
			}
			resp.SetResponse(http.StatusOK, armrelay.HybridConnectionsClientCreateOrUpdateResponse{
				HybridConnection: armrelay.HybridConnection{Name: &hybridConnectionName},
			}, nil)
			return
		},
		Delete: func(ctx context.Context, resourceGroupName, namespaceName, hybridConnectionName string,
			options *armrelay.HybridConnectionsClientDeleteOptions,
		) (resp azfake.Responder[armrelay.HybridConnectionsClientDeleteResponse], errResp azfake.ErrorResponder) {
			calls.deleted = append(calls.deleted, hybridConnectionName)
			resp.SetResponse(http.StatusOK, armrelay.HybridConnectionsClientDeleteResponse{}, nil)
			return
		},
	}

	p, err := NewProvisioner(&ProvisionerOptions{
		SubscriptionID:    "sub",
		ResourceGroupName: "rg",
		NamespaceName:     "myrelay",
		Credential:        &azfake.TokenCredential{},
		ClientOptions: &arm.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				Transport: fake.NewHybridConnectionsServerTransport(&server),
			},
		},
	})
	if err != nil {
		t.Fatalf("NewProvisioner failed: %v", err)
	}
	return p
}

func TestProvisioner_EnsureHybridConnection(t *testing.T) {
	calls := &hybridConnectionCalls{}
	p := newFakeProvisioner(t, calls, false)

	for i := 0; i < 2; i++ {
		if err := p.EnsureHybridConnection(context.Background(), "hc-holonet"); err != nil {
			t.Fatalf("EnsureHybridConnection failed: %v", err)
		}
	}

	if len(calls.created) != 1 {
		t.Fatalf("Expected one create call, got: %v", calls.created)
	}
	if calls.created[0] != "rg/myrelay/hc-holonet" {
		t.Errorf("Expected rg/myrelay/hc-holonet, got: %s", calls.created[0])
	}
	if len(calls.clientAuth) != 1 || calls.clientAuth[0] {
		t.Errorf("Expected client authorization disabled, got: %v", calls.clientAuth)
	}
}

func TestProvisioner_DeleteHybridConnection(t *testing.T) {
	calls := &hybridConnectionCalls{}
	p := newFakeProvisioner(t, calls, false)

	if err := p.EnsureHybridConnection(context.Background(), "hc-holonet"); err != nil {
		t.Fatalf("EnsureHybridConnection failed: %v", err)
	}
	if err := p.DeleteHybridConnection(context.Background(), "hc-holonet"); err != nil {
		t.Fatalf("DeleteHybridConnection failed: %v", err)
	}
	if len(calls.deleted) != 1 || calls.deleted[0] != "hc-holonet" {
		t.Errorf("Expected hc-holonet deleted, got: %v", calls.deleted)
	}

	// a deleted connection is created again on the next ensure
	if err := p.EnsureHybridConnection(context.Background(), "hc-holonet"); err != nil {
		t.Fatalf("EnsureHybridConnection failed: %v", err)
	}
	if len(calls.created) != 2 {
		t.Errorf("Expected a second create call, got: %v", calls.created)
	}
}

func TestProvisioner_EnsureError(t *testing.T) {
	calls := &hybridConnectionCalls{}
	p := newFakeProvisioner(t, calls, true)

	err := p.EnsureHybridConnection(context.Background(), "hc-holonet")
	if err == nil {
		t.Fatal("Expected error from failed create")
	}
	if !strings.Contains(err.Error(), "hc-holonet") {
		t.Errorf("Expected error to name the hybrid connection, got: %v", err)
	}
}
