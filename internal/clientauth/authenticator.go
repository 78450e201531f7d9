package clientauth

import (
	"context"
	"errors"
	"log/slog"

	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// Credentials carries the client authentication material from a form-encoded
// request body.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Authenticator verifies client credentials. The surrounding endpoints treat
// it as an external collaborator; swap in an MTLS- or private_key_jwt-backed
// implementation without touching the flows.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*Client, error)
}

// SecretAuthenticator authenticates clients by client_secret against the
// stored bcrypt hash. Unknown client and bad secret are reported identically
// so the endpoint cannot be used to enumerate client ids.
type SecretAuthenticator struct {
	clients ClientStore
	logger  *slog.Logger
}

// Option configures a SecretAuthenticator.
type Option func(*SecretAuthenticator)

// WithLogger sets a logger for authentication failures.
func WithLogger(logger *slog.Logger) Option {
	return func(a *SecretAuthenticator) {
		a.logger = logger
	}
}

// NewSecretAuthenticator constructs a store-backed authenticator.
func NewSecretAuthenticator(clients ClientStore, opts ...Option) *SecretAuthenticator {
	a := &SecretAuthenticator{clients: clients}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var errUnauthorizedClient = dErrors.New(dErrors.CodeUnauthorized, "client authentication failed")

func (a *SecretAuthenticator) Authenticate(ctx context.Context, creds Credentials) (*Client, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, errUnauthorizedClient
	}

	client, err := a.clients.FindByClientID(ctx, creds.ClientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errUnauthorizedClient
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "client store unavailable")
	}
	if !client.Active {
		if a.logger != nil {
			a.logger.WarnContext(ctx, "authentication attempt by inactive client",
				"client_id", creds.ClientID,
			)
		}
		return nil, errUnauthorizedClient
	}

	if err := VerifySecret(creds.ClientSecret, client.SecretHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, errUnauthorizedClient
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "secret verification failed")
	}

	return client, nil
}
