package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/authzerror"
	"custodia/internal/clientauth"
	"custodia/internal/introspection/models"
	"custodia/internal/platform/middleware"
	dErrors "custodia/pkg/domain-errors"
)

// Resolver defines the introspection operation the endpoint needs.
type Resolver interface {
	Resolve(ctx context.Context, refreshToken string, client *clientauth.Client) (*models.Result, error)
}

// Handler serves the refresh-token introspection endpoint.
type Handler struct {
	logger        *slog.Logger
	resolver      Resolver
	authenticator clientauth.Authenticator
}

// New creates an introspection Handler.
func New(resolver Resolver, authenticator clientauth.Authenticator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:        logger,
		resolver:      resolver,
		authenticator: authenticator,
	}
}

// Register registers the introspection route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/connect/introspect", h.handleIntrospect)
}

// handleIntrospect answers 200 for every authenticated request: an inactive
// token is a normal answer, never an error status.
func (h *Handler) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if err := r.ParseForm(); err != nil {
		authzerror.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	client, err := h.authenticator.Authenticate(ctx, clientauth.Credentials{
		ClientID:     r.PostFormValue("client_id"),
		ClientSecret: r.PostFormValue("client_secret"),
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			authzerror.WriteOAuthError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
			return
		}
		h.logger.ErrorContext(ctx, "client authentication unavailable",
			"request_id", requestID,
			"error", err.Error(),
		)
		authzerror.WriteOAuthError(w, http.StatusInternalServerError, "server_error", "authentication temporarily unavailable")
		return
	}

	result, err := h.resolver.Resolve(ctx, r.PostFormValue("token"), client)
	if err != nil {
		h.logger.ErrorContext(ctx, "introspection failed",
			"request_id", requestID,
			"client_id", client.ClientID,
			"error", err.Error(),
		)
		authzerror.WriteOAuthError(w, http.StatusServiceUnavailable, "server_error", "introspection temporarily unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}
