package service

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretService stores the generation provider API keys in Secret Manager so
// they never land in env files. The worker loads the key list at startup.
type SecretService interface {
	StoreProviderKeys(ctx context.Context, provider string, keys []string) error
	GetProviderKeys(ctx context.Context, provider string) ([]string, error)
	DeleteProviderKeys(ctx context.Context, provider string) error
}

type secretService struct {
	client    *secretmanager.Client
	projectID string
}

// NewSecretService creates a SecretService for the given GCP project.
func NewSecretService(ctx context.Context, projectID string, opts ...option.ClientOption) (SecretService, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GCP project ID is not set")
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &secretService{client: client, projectID: projectID}, nil
}

func (s *secretService) secretName(provider string) string {
	return fmt.Sprintf("provider-%s-keys", provider)
}

func (s *secretService) secretPath(provider string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", s.projectID, s.secretName(provider))
}

// StoreProviderKeys writes the key list as a newline-joined secret version,
// creating the secret on first use.
func (s *secretService) StoreProviderKeys(ctx context.Context, provider string, keys []string) error {
	path := s.secretPath(provider)

	_, err := s.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{Name: path})
	if err != nil {
		createReq := &secretmanagerpb.CreateSecretRequest{
			Parent:   fmt.Sprintf("projects/%s", s.projectID),
			SecretId: s.secretName(provider),
			Secret: &secretmanagerpb.Secret{
				Replication: &secretmanagerpb.Replication{
					Replication: &secretmanagerpb.Replication_Automatic_{
						Automatic: &secretmanagerpb.Replication_Automatic{},
					},
				},
			},
		}
		if _, err := s.client.CreateSecret(ctx, createReq); err != nil {
			return fmt.Errorf("failed to create secret: %w", err)
		}
	}

	addReq := &secretmanagerpb.AddSecretVersionRequest{
		Parent: path,
		Payload: &secretmanagerpb.SecretPayload{
			Data: []byte(strings.Join(keys, "\n")),
		},
	}
	if _, err := s.client.AddSecretVersion(ctx, addReq); err != nil {
		return fmt.Errorf("failed to add secret version: %w", err)
	}
	return nil
}

func (s *secretService) GetProviderKeys(ctx context.Context, provider string) ([]string, error) {
	name := s.secretPath(provider) + "/versions/latest"
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to access secret version: %w", err)
	}
	var keys []string
	for _, line := range strings.Split(string(result.Payload.Data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			keys = append(keys, line)
		}
	}
	return keys, nil
}

func (s *secretService) DeleteProviderKeys(ctx context.Context, provider string) error {
	err := s.client.DeleteSecret(ctx, &secretmanagerpb.DeleteSecretRequest{Name: s.secretPath(provider)})
	if err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}
