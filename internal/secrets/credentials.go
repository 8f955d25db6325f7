package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrSecretUnavailable is returned when the secret store cannot be reached
	// or does not know the requested identifier.
	ErrSecretUnavailable = errors.New("secret unavailable")

	// ErrSecretMalformed is returned when the secret payload is not a JSON
	// object carrying a username and a password.
	ErrSecretMalformed = errors.New("secret malformed")
)

// Credentials holds database credentials resolved from the secret store.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"` //#nosec G117 -- resolved at runtime, never persisted
}

// String redacts the password so credentials are safe to pass to a formatter by accident.
func (c Credentials) String() string {
	return fmt.Sprintf("{username:%s password:[redacted]}", c.Username)
}

// GoString matches String for %#v.
func (c Credentials) GoString() string {
	return c.String()
}

// ParseCredentials decodes a secret payload.
func ParseCredentials(payload string) (Credentials, error) {
	var raw struct {
		Username *string `json:"username"`
		Password *string `json:"password"`
	}

	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Credentials{}, fmt.Errorf("%w: payload is not a JSON object", ErrSecretMalformed)
	}

	if raw.Username == nil || *raw.Username == "" {
		return Credentials{}, fmt.Errorf("%w: missing username", ErrSecretMalformed)
	}

	if raw.Password == nil || *raw.Password == "" {
		return Credentials{}, fmt.Errorf("%w: missing password", ErrSecretMalformed)
	}

	return Credentials{Username: *raw.Username, Password: *raw.Password}, nil
}

// Source is an external secret store.
type Source interface {
	GetSecret(ctx context.Context, secretID string) (string, error)
}

// Resolver fetches database credentials on demand.
type Resolver interface {
	FetchCredentials(ctx context.Context) (Credentials, error)
}

// StoreResolver resolves credentials from a Source by a fixed secret identifier.
// Every call goes to the source; nothing is cached here.
type StoreResolver struct {
	source   Source
	secretID string
}

// NewStoreResolver creates a resolver for secretID.
func NewStoreResolver(source Source, secretID string) *StoreResolver {
	return &StoreResolver{source: source, secretID: secretID}
}

// SecretID returns the identifier this resolver reads.
func (r *StoreResolver) SecretID() string {
	return r.secretID
}

func (r *StoreResolver) FetchCredentials(ctx context.Context) (Credentials, error) {
	payload, err := r.source.GetSecret(ctx, r.secretID)
	if err != nil {
		if errors.Is(err, ErrSecretUnavailable) || errors.Is(err, ErrSecretMalformed) {
			return Credentials{}, err
		}

		return Credentials{}, fmt.Errorf("%w: %w", ErrSecretUnavailable, err)
	}

	return ParseCredentials(payload)
}
