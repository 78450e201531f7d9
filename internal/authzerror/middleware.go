package authzerror

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
)

// errorIDParam is the marker the upstream authorize engine plants on its
// generic error redirect. Responses without it pass through untouched.
const errorIDParam = "errorId"

// Details describes a failed authorize flow as recorded by the upstream
// engine under an error id.
type Details struct {
	Code         string
	Description  string
	RedirectURI  string
	ResponseMode string
	State        string
}

// DetailsResolver recovers the failure details behind an error id.
type DetailsResolver interface {
	Resolve(ctx context.Context, errorID string) (*Details, error)
}

// Middleware intercepts authorize-flow redirect responses. A redirect whose
// Location carries the error-id marker is rewritten: either the Location is
// replaced with the client's redirect URI carrying the translated public
// error, or, when the redirect URI cannot be trusted, the response becomes a
// direct 400 with a JSON body. All other responses pass through unmodified.
func Middleware(resolver DetailsResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&redirectInterceptor{
				ResponseWriter: w,
				request:        r,
				resolver:       resolver,
				logger:         logger,
			}, r)
		})
	}
}

type redirectInterceptor struct {
	http.ResponseWriter
	request  *http.Request
	resolver DetailsResolver
	logger   *slog.Logger

	// handled means this interceptor already wrote the response; the
	// upstream handler's own body writes are discarded.
	handled bool
}

func (w *redirectInterceptor) WriteHeader(status int) {
	if w.handled {
		return
	}
	if status == http.StatusFound || status == http.StatusSeeOther {
		if errorID := errorIDFrom(w.Header().Get("Location")); errorID != "" {
			w.rewrite(status, errorID)
			return
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *redirectInterceptor) Write(p []byte) (int, error) {
	if w.handled {
		return len(p), nil
	}
	return w.ResponseWriter.Write(p)
}

func (w *redirectInterceptor) rewrite(originalStatus int, errorID string) {
	ctx := w.request.Context()

	details, err := w.resolver.Resolve(ctx, errorID)
	if err != nil && w.logger != nil {
		w.logger.ErrorContext(ctx, "failed to resolve authorize error details",
			"error_id", errorID,
			"error", err,
		)
	}
	if details == nil {
		// Unknown id: leave the upstream redirect alone.
		w.ResponseWriter.WriteHeader(originalStatus)
		return
	}

	public := Translate(details.Code, details.Description)

	location, err := ErrorLocation(details.RedirectURI, details.ResponseMode, details.State, public)
	if err != nil {
		w.Header().Del("Location")
		w.handled = true
		WriteOAuthError(w.ResponseWriter, http.StatusBadRequest, public.Code, public.Description)
		return
	}

	w.Header().Set("Location", location)
	w.handled = true
	w.ResponseWriter.WriteHeader(http.StatusFound)
}

func errorIDFrom(location string) string {
	if location == "" {
		return ""
	}
	target, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return target.Query().Get(errorIDParam)
}
