package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/audit"
	"custodia/internal/clientauth"
	"custodia/internal/grants"
	"custodia/internal/par/models"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// Data keys inside the PAR grant record.
const (
	dataRequestObject = "request_object"
	dataRedirectURI   = "redirect_uri"
	dataResponseMode  = "response_mode"
	dataScope         = "scope"
	dataState         = "state"
)

const requestURIEntropy = 32

// AuditPublisher fans PAR lifecycle events out to the audit pipeline.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service registers pushed authorization requests under single-use, expiring
// request URIs.
type Service struct {
	store          grants.Store
	authenticator  clientauth.Authenticator
	validator      RequestValidator
	ttl            time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
	tracer         trace.Tracer
	clock          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAuditPublisher sets the audit sink.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs a Service. ttl is the single registration lifetime applied
// to every request URI, so expires_in is stable for all callers.
func New(store grants.Store, authenticator clientauth.Authenticator, validator RequestValidator, ttl time.Duration, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("grant store is required")
	}
	if authenticator == nil {
		return nil, errors.New("client authenticator is required")
	}
	if validator == nil {
		return nil, errors.New("request validator is required")
	}
	if ttl <= 0 {
		return nil, errors.New("request uri ttl must be positive")
	}
	s := &Service{
		store:         store,
		authenticator: authenticator,
		validator:     validator,
		ttl:           ttl,
		tracer:        otel.Tracer("custodia/par"),
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit authenticates the client, validates the pushed request, and
// registers it under a fresh unguessable request URI.
func (s *Service) Submit(ctx context.Context, creds clientauth.Credentials, form url.Values) (*models.Result, error) {
	ctx, span := s.tracer.Start(ctx, "par.Submit")
	defer span.End()

	client, err := s.authenticator.Authenticate(ctx, creds)
	if err != nil {
		s.audit(ctx, audit.EventPARRejected, creds.ClientID, "client authentication failed")
		return nil, err
	}

	validated, err := s.validator.Validate(ctx, client, form)
	if err != nil {
		s.audit(ctx, audit.EventPARRejected, client.ClientID, "request validation failed")
		return nil, err
	}

	requestURI, err := newRequestURI()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate request uri")
	}

	now := s.clock().UTC()
	record := &grants.Record{
		Key:      requestURI,
		Type:     grants.TypePARRequest,
		ClientID: client.ClientID,
		Data: map[string]string{
			dataRequestObject: form.Get("request"),
			dataRedirectURI:   validated.RedirectURI,
			dataResponseMode:  validated.ResponseMode,
			dataScope:         strings.Join(validated.Scope, " "),
			dataState:         validated.State,
		},
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// 256 bits of entropy colliding means the random source is
			// broken. Fail loudly, never overwrite.
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "request uri collision")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist pushed request")
	}

	s.audit(ctx, audit.EventPARSubmitted, client.ClientID, "")
	return &models.Result{
		RequestURI: requestURI,
		ExpiresIn:  int(s.ttl.Seconds()),
	}, nil
}

// Redeem fetches a registered request for the authorize flow. Expired or
// unknown URIs surface as sentinel.ErrNotFound; consumption (one-time use) is
// owned by the caller.
func (s *Service) Redeem(ctx context.Context, requestURI string) (*models.Request, error) {
	if !strings.HasPrefix(requestURI, models.RequestURIPrefix) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "malformed request uri")
	}

	record, err := s.store.Get(ctx, requestURI)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "grant store unavailable")
	}
	if record.Type != grants.TypePARRequest {
		return nil, sentinel.ErrNotFound
	}

	request := &models.Request{
		RequestURI:    record.Key,
		RequestObject: record.Data[dataRequestObject],
		ClientID:      record.ClientID,
		RedirectURI:   record.Data[dataRedirectURI],
		ResponseMode:  record.Data[dataResponseMode],
		State:         record.Data[dataState],
		CreatedAt:     record.CreatedAt,
		ExpiresAt:     record.ExpiresAt,
	}
	if raw := record.Data[dataScope]; raw != "" {
		request.Scope = strings.Split(raw, " ")
	}
	return request, nil
}

func newRequestURI() (string, error) {
	buf := make([]byte, requestURIEntropy)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return models.RequestURIPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *Service) audit(ctx context.Context, action audit.EventAction, clientID, reason string) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action),
			"event", string(action),
			"log_type", "audit",
			"client_id", clientID,
			"reason", reason,
		)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(action),
		ClientID: clientID,
		Reason:   reason,
	})
}
