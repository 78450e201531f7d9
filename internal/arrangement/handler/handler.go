package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/arrangement/models"
	"custodia/internal/authzerror"
	"custodia/internal/clientauth"
	"custodia/internal/platform/middleware"
	dErrors "custodia/pkg/domain-errors"
)

// Revoker defines the arrangement operations the revocation endpoint needs.
type Revoker interface {
	RevokeByArrangementID(ctx context.Context, arrangementID, requestingClientID string) (models.RevocationOutcome, error)
}

// Handler serves the arrangement-revocation endpoint.
type Handler struct {
	logger        *slog.Logger
	arrangements  Revoker
	authenticator clientauth.Authenticator
}

// New creates an arrangement Handler.
func New(arrangements Revoker, authenticator clientauth.Authenticator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:        logger,
		arrangements:  arrangements,
		authenticator: authenticator,
	}
}

// Register registers the arrangement routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/connect/arrangements/revoke", h.handleRevoke)
}

// handleRevoke processes a client-authenticated, form-encoded revocation of a
// consent arrangement.
func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
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

	// A client may only call this endpoint with a grant type it is
	// registered for.
	if grantType := r.PostFormValue("grant_type"); grantType != "" && !client.AllowsGrantType(grantType) {
		authzerror.WriteOAuthError(w, http.StatusUnauthorized, "invalid_client", "grant type not allowed for this client")
		return
	}

	arrangementID := r.PostFormValue("cdr_arrangement_id")
	if arrangementID == "" {
		authzerror.WriteFieldErrors(w, http.StatusBadRequest, authzerror.MissingField("cdr_arrangement_id"))
		return
	}

	outcome, err := h.arrangements.RevokeByArrangementID(ctx, arrangementID, client.ClientID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke arrangement",
			"request_id", requestID,
			"client_id", client.ClientID,
			"error", err.Error(),
		)
		authzerror.WriteOAuthError(w, http.StatusInternalServerError, "server_error", "revocation temporarily unavailable")
		return
	}

	switch outcome {
	case models.Revoked:
		w.WriteHeader(http.StatusNoContent)
	case models.NotFound, models.WrongClient:
		// Identical body for both: the response must not reveal whether
		// the id exists under another client.
		authzerror.WriteFieldErrors(w, http.StatusUnprocessableEntity, authzerror.InvalidArrangement(arrangementID))
	default:
		authzerror.WriteOAuthError(w, http.StatusInternalServerError, "server_error", "unexpected revocation outcome")
	}
}
