package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/arrangement/metrics"
	"custodia/internal/arrangement/models"
	"custodia/internal/audit"
	"custodia/internal/grants"
	"custodia/internal/platform/middleware"
	"custodia/pkg/attrs"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// Data keys inside the arrangement grant record.
const (
	dataScope           = "scope"
	dataRefreshTokenKey = "refresh_token_key"
	dataAuthCode        = "auth_code"
)

// AuditPublisher fans consent-lifecycle events out to the audit pipeline.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the consent-arrangement lifecycle over the persisted-grant
// store. The store gives per-key atomicity only, so revocation is an
// idempotent two-step sequence rather than a transaction.
type Service struct {
	store          grants.Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
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

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
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

// New constructs a Service.
func New(store grants.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("grant store is required")
	}
	s := &Service{
		store:  store,
		tracer: otel.Tracer("custodia/arrangement"),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateRequest carries the inputs for establishing an arrangement.
type CreateRequest struct {
	ClientID string
	Subject  string
	Scope    []string
	AuthCode string
	// ExpiresAt bounds the consent; zero means open-ended.
	ExpiresAt time.Time
}

// Create establishes a new arrangement for a client+subject pair and returns
// it with a freshly minted opaque arrangement id.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Grant, error) {
	ctx, span := s.tracer.Start(ctx, "arrangement.Create")
	defer span.End()

	if req.ClientID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "client id is required")
	}
	if req.Subject == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject is required")
	}

	grant := &models.Grant{
		ArrangementID: uuid.NewString(),
		ClientID:      req.ClientID,
		Subject:       req.Subject,
		Scope:         req.Scope,
		AuthCode:      req.AuthCode,
		CreatedAt:     s.clock().UTC(),
		ExpiresAt:     req.ExpiresAt,
	}

	if err := s.store.Create(ctx, toRecord(grant)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist arrangement")
	}

	span.SetAttributes(attribute.String("arrangement.id", grant.ArrangementID))
	s.logAudit(ctx, audit.EventArrangementCreated,
		"client_id", grant.ClientID,
		"arrangement_id", grant.ArrangementID,
	)
	if s.metrics != nil {
		s.metrics.ArrangementsCreated.Inc()
	}
	return grant, nil
}

// FindByArrangementID fetches an arrangement. Returns sentinel.ErrNotFound
// (wrapped) when no arrangement grant matches.
func (s *Service) FindByArrangementID(ctx context.Context, arrangementID string) (*models.Grant, error) {
	if arrangementID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "arrangement id is required")
	}

	record, err := s.store.Get(ctx, arrangementID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "grant store unavailable")
	}
	if record.Type != grants.TypeArrangement {
		// A foreign grant type under this key is not an arrangement.
		return nil, sentinel.ErrNotFound
	}
	return fromRecord(record), nil
}

// FindByClientAndSubject locates the live arrangement for a client+subject
// pair, as needed by refresh-token introspection.
func (s *Service) FindByClientAndSubject(ctx context.Context, clientID, subject string) (*models.Grant, error) {
	if clientID == "" || subject == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "client id and subject are required")
	}

	records, err := s.store.GetAllByClientID(ctx, clientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "grant store unavailable")
	}
	for _, record := range records {
		if record.Type == grants.TypeArrangement && record.SubjectID == subject {
			return fromRecord(record), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// BindRefreshToken points the arrangement at the grant backing a newly issued
// or rotated refresh token, clearing the pre-token auth code.
func (s *Service) BindRefreshToken(ctx context.Context, arrangementID, refreshTokenKey string) error {
	if refreshTokenKey == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "refresh token key is required")
	}

	grant, err := s.FindByArrangementID(ctx, arrangementID)
	if err != nil {
		return err
	}
	grant.RefreshTokenKey = refreshTokenKey
	grant.AuthCode = ""

	if err := s.store.Put(ctx, toRecord(grant)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to rebind refresh token")
	}
	return nil
}

// RevokeByArrangementID attempts to revoke the arrangement on behalf of
// requestingClientID. The two removals are separate store operations; a crash
// between them leaves a token-revoked-but-record-pending state that a retry
// resolves. Calling twice is safe: the second call observes NotFound.
func (s *Service) RevokeByArrangementID(ctx context.Context, arrangementID, requestingClientID string) (models.RevocationOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "arrangement.Revoke")
	defer span.End()
	start := s.clock()
	defer func() {
		if s.metrics != nil {
			s.metrics.RevocationDuration.Observe(float64(s.clock().Sub(start).Microseconds()) / 1000.0)
		}
	}()

	if arrangementID == "" {
		return models.NotFound, dErrors.New(dErrors.CodeInvalidInput, "arrangement id is required")
	}
	if requestingClientID == "" {
		return models.NotFound, dErrors.New(dErrors.CodeInvalidInput, "requesting client id is required")
	}

	grant, err := s.FindByArrangementID(ctx, arrangementID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordRevocation(models.NotFound)
			return models.NotFound, nil
		}
		return models.NotFound, err
	}

	if grant.ClientID != requestingClientID {
		// No mutation: a client must not be able to revoke another
		// client's consent by replaying an arrangement id.
		s.recordRevocation(models.WrongClient)
		s.logAudit(ctx, audit.EventRevocationDenied,
			"client_id", requestingClientID,
			"arrangement_id", arrangementID,
			"reason", "arrangement belongs to a different client",
		)
		return models.WrongClient, nil
	}

	// Step 1: remove the refresh-token grant. An arrangement without a live
	// refresh token is already-revoked for this step; carry on.
	if grant.RefreshTokenKey != "" {
		if err := s.store.Remove(ctx, grant.RefreshTokenKey); err != nil {
			return models.NotFound, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to remove refresh token grant")
		}
	}

	// Step 2: remove the consent record itself.
	if err := s.store.Remove(ctx, arrangementID); err != nil {
		return models.NotFound, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to remove arrangement record")
	}

	span.SetAttributes(attribute.String("arrangement.id", arrangementID))
	s.recordRevocation(models.Revoked)
	s.logAudit(ctx, audit.EventArrangementRevoked,
		"client_id", requestingClientID,
		"arrangement_id", arrangementID,
	)
	return models.Revoked, nil
}

// RevokeAllForClient removes every arrangement and refresh-token grant held
// by a client. Used when a software product is decommissioned.
func (s *Service) RevokeAllForClient(ctx context.Context, clientID string) (int, error) {
	if clientID == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "client id is required")
	}

	records, err := s.store.GetAllByClientID(ctx, clientID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "grant store unavailable")
	}

	var keys []string
	revoked := 0
	for _, record := range records {
		if record.Type != grants.TypeArrangement {
			continue
		}
		if rtKey := record.Data[dataRefreshTokenKey]; rtKey != "" {
			keys = append(keys, rtKey)
		}
		keys = append(keys, record.Key)
		revoked++
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := s.store.RemoveAll(ctx, keys); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to remove client grants")
	}

	s.logAudit(ctx, audit.EventArrangementRevoked,
		"client_id", clientID,
		"reason", "client decommissioned",
	)
	return revoked, nil
}

func (s *Service) recordRevocation(outcome models.RevocationOutcome) {
	if s.metrics != nil {
		s.metrics.RecordRevocation(outcome.String())
	}
}

func (s *Service) logAudit(ctx context.Context, action audit.EventAction, attributes ...any) {
	args := append(attributes, "event", string(action), "log_type", "audit")
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Action:        string(action),
		ClientID:      attrs.ExtractString(attributes, "client_id"),
		ArrangementID: attrs.ExtractString(attributes, "arrangement_id"),
		Reason:        attrs.ExtractString(attributes, "reason"),
		RequestID:     middleware.GetRequestID(ctx),
		ClientIP:      middleware.GetClientIP(ctx),
		DeviceName:    middleware.GetDeviceName(ctx),
	})
}

func toRecord(grant *models.Grant) *grants.Record {
	data := map[string]string{
		dataScope: strings.Join(grant.Scope, " "),
	}
	if grant.RefreshTokenKey != "" {
		data[dataRefreshTokenKey] = grant.RefreshTokenKey
	}
	if grant.AuthCode != "" {
		data[dataAuthCode] = grant.AuthCode
	}
	return &grants.Record{
		Key:       grant.ArrangementID,
		Type:      grants.TypeArrangement,
		ClientID:  grant.ClientID,
		SubjectID: grant.Subject,
		Data:      data,
		CreatedAt: grant.CreatedAt,
		ExpiresAt: grant.ExpiresAt,
	}
}

func fromRecord(record *grants.Record) *models.Grant {
	grant := &models.Grant{
		ArrangementID:   record.Key,
		ClientID:        record.ClientID,
		Subject:         record.SubjectID,
		RefreshTokenKey: record.Data[dataRefreshTokenKey],
		AuthCode:        record.Data[dataAuthCode],
		CreatedAt:       record.CreatedAt,
		ExpiresAt:       record.ExpiresAt,
	}
	if raw := record.Data[dataScope]; raw != "" {
		grant.Scope = strings.Split(raw, " ")
	}
	return grant
}
