// Package service resolves refresh tokens back to the consent arrangement
// they were issued under.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	arrModels "custodia/internal/arrangement/models"
	"custodia/internal/audit"
	"custodia/internal/clientauth"
	"custodia/internal/idperm"
	"custodia/internal/introspection/models"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// TokenValidator checks a refresh token and recovers its stored claims.
// Invalid, expired, or unknown tokens surface as sentinel errors; only
// infrastructure failures are typed errors.
type TokenValidator interface {
	Validate(ctx context.Context, refreshToken string, client *clientauth.Client) (*models.TokenClaims, error)
}

// ArrangementFinder locates the live arrangement for a client+subject pair.
type ArrangementFinder interface {
	FindByClientAndSubject(ctx context.Context, clientID, subject string) (*arrModels.Grant, error)
}

// AuditPublisher fans introspection events out to the audit pipeline.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Resolver answers refresh-token introspection. Every failure short of an
// infrastructure outage collapses to {active: false}; the endpoint must not
// reveal why a token is unusable.
type Resolver struct {
	tokens         TokenValidator
	codec          *idperm.Codec
	arrangements   ArrangementFinder
	logger         *slog.Logger
	auditPublisher AuditPublisher
	tracer         trace.Tracer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithAuditPublisher sets the audit sink.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(r *Resolver) {
		r.auditPublisher = publisher
	}
}

// NewResolver constructs a Resolver.
func NewResolver(tokens TokenValidator, codec *idperm.Codec, arrangements ArrangementFinder, opts ...Option) (*Resolver, error) {
	if tokens == nil {
		return nil, errors.New("token validator is required")
	}
	if codec == nil {
		return nil, errors.New("identifier codec is required")
	}
	if arrangements == nil {
		return nil, errors.New("arrangement finder is required")
	}
	r := &Resolver{
		tokens:       tokens,
		codec:        codec,
		arrangements: arrangements,
		tracer:       otel.Tracer("custodia/introspection"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

var inactive = &models.Result{Active: false}

// Resolve introspects a refresh token on behalf of the authenticated client.
// A non-nil error is returned only for infrastructure failures; everything
// else is an inactive result.
func (r *Resolver) Resolve(ctx context.Context, refreshToken string, client *clientauth.Client) (*models.Result, error) {
	ctx, span := r.tracer.Start(ctx, "introspection.Resolve")
	defer span.End()

	if refreshToken == "" || client == nil {
		return inactive, nil
	}

	claims, err := r.tokens.Validate(ctx, refreshToken, client)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnavailable) {
			return nil, err
		}
		return inactive, nil
	}

	subject, err := r.codec.DecodeSub(claims.Subject, idperm.SubjectContext{
		SoftwareProductID:   claims.SoftwareProductID,
		SectorIdentifierURI: claims.SectorIdentifierURI,
	})
	if err != nil {
		// Foreign or corrupted subject: indistinguishable from unknown.
		return inactive, nil
	}

	grant, err := r.arrangements.FindByClientAndSubject(ctx, client.ClientID, subject)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Valid token but no arrangement behind it. Inconsistent
			// state; report inactive rather than failing the endpoint.
			if r.logger != nil {
				r.logger.WarnContext(ctx, "valid refresh token with no arrangement",
					"client_id", client.ClientID,
				)
			}
			return inactive, nil
		}
		return nil, err
	}

	r.auditEmit(ctx, client.ClientID, grant.ArrangementID)

	result := &models.Result{
		Active:           true,
		CDRArrangementID: grant.ArrangementID,
		Scope:            strings.Join(grant.Scope, " "),
	}
	if !grant.ExpiresAt.IsZero() {
		result.Exp = grant.ExpiresAt.Unix()
	}
	return result, nil
}

func (r *Resolver) auditEmit(ctx context.Context, clientID, arrangementID string) {
	if r.auditPublisher == nil {
		return
	}
	_ = r.auditPublisher.Emit(ctx, audit.Event{
		Action:        string(audit.EventIntrospection),
		ClientID:      clientID,
		ArrangementID: arrangementID,
		Outcome:       "active",
	})
}

