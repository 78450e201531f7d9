package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"custodia/internal/authzerror"
	"custodia/internal/clientauth"
	"custodia/internal/par/models"
	"custodia/internal/platform/middleware"
	dErrors "custodia/pkg/domain-errors"
)

// Service defines the PAR operations the endpoint needs.
type Service interface {
	Submit(ctx context.Context, creds clientauth.Credentials, form url.Values) (*models.Result, error)
}

// Handler serves the pushed-authorization-request endpoint.
type Handler struct {
	logger *slog.Logger
	par    Service
}

// New creates a PAR Handler.
func New(par Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, par: par}
}

// Register registers the PAR route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/connect/par", h.handleSubmit)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if err := r.ParseForm(); err != nil {
		authzerror.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	result, err := h.par.Submit(ctx, clientauth.Credentials{
		ClientID:     r.PostFormValue("client_id"),
		ClientSecret: r.PostFormValue("client_secret"),
	}, r.PostForm)
	if err != nil {
		h.writeError(w, r, requestID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(result)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeUnauthorized:
		authzerror.WriteOAuthError(w, http.StatusUnauthorized, "unauthorized_client", "client authentication failed")
	case dErrors.CodeValidation:
		authzerror.WriteOAuthError(w, http.StatusUnauthorized, "request_jwt_failed_validation", "the request object failed validation")
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		authzerror.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", publicDescription(err))
	default:
		h.logger.ErrorContext(r.Context(), "pushed authorization request failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		authzerror.WriteOAuthError(w, http.StatusInternalServerError, "server_error", "registration temporarily unavailable")
	}
}

// publicDescription surfaces validation messages, which are written for
// callers, but never internal error chains.
func publicDescription(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Unwrap() == nil {
		return de.Message
	}
	return "the request could not be processed"
}
