package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
)

var (
	ErrNotConfigured = errors.New("secrets: provider not configured")
	ErrEmptySecret   = errors.New("secrets: secret is empty")
)

// Provider resolves the credential the gateway presents to the commerce
// backend. It never comes from client input.
type Provider interface {
	BackendAPIKey(ctx context.Context) (string, error)
}

// Static serves a value read from configuration.
type Static string

func (s Static) BackendAPIKey(context.Context) (string, error) {
	v := strings.TrimSpace(string(s))
	if v == "" {
		return "", ErrEmptySecret
	}
	return v, nil
}

// accessor is the subset of *secretmanager.Client used here.
type accessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

type SecretManager struct {
	client    accessor
	projectID string
	secretID  string
	version   string
}

func NewSecretManager(client accessor, projectID, secretID, version string) *SecretManager {
	return &SecretManager{
		client:    client,
		projectID: strings.TrimSpace(projectID),
		secretID:  strings.TrimSpace(secretID),
		version:   strings.TrimSpace(version),
	}
}

func (p *SecretManager) name() string {
	ver := p.version
	if ver == "" {
		ver = "latest"
	}
	return "projects/" + p.projectID + "/secrets/" + p.secretID + "/versions/" + ver
}

func (p *SecretManager) BackendAPIKey(ctx context.Context) (string, error) {
	if p == nil || p.client == nil {
		return "", ErrNotConfigured
	}
	if p.projectID == "" || p.secretID == "" {
		return "", fmt.Errorf("%w: project and secret id are required", ErrNotConfigured)
	}

	name := p.name()
	resp, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("secrets: access %s: %w", name, err)
	}
	if resp == nil || resp.Payload == nil {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, name)
	}

	v := strings.TrimSpace(string(resp.Payload.Data))
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, name)
	}
	return v, nil
}
