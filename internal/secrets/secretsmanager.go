package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerSource reads secrets from AWS Secrets Manager.
type SecretsManagerSource struct {
	client SecretsManagerAPI
}

// NewSecretsManagerSource creates a Source backed by client.
func NewSecretsManagerSource(client SecretsManagerAPI) *SecretsManagerSource {
	return &SecretsManagerSource{client: client}
}

func (s *SecretsManagerSource) GetSecret(ctx context.Context, secretID string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSecretUnavailable, err)
	}

	// Binary secrets are not supported.
	if out.SecretString == nil {
		return "", fmt.Errorf("%w: secret has no string value", ErrSecretMalformed)
	}

	return *out.SecretString, nil
}
