package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/authzerror"
	"custodia/internal/clientauth"
	"custodia/internal/introspection/models"
	dErrors "custodia/pkg/domain-errors"
)

const (
	testClientID = "adr-client-1"
	testSecret   = "s3cret-value"
)

type stubResolver struct {
	result *models.Result
	err    error
}

func (s *stubResolver) Resolve(context.Context, string, *clientauth.Client) (*models.Result, error) {
	return s.result, s.err
}

func newRouter(t *testing.T, resolver Resolver) *chi.Mux {
	t.Helper()
	hash, err := clientauth.HashSecret(testSecret)
	require.NoError(t, err)
	clients := clientauth.NewMemoryClientStore()
	require.NoError(t, clients.Register(&clientauth.Client{
		ClientID:            testClientID,
		SecretHash:          hash,
		SoftwareProductID:   "prod-1",
		SectorIdentifierURI: "https://recipient.example/sector",
		RedirectURIs:        []string{"https://recipient.example/cb"},
		Active:              true,
	}))

	h := New(resolver, clientauth.NewSecretAuthenticator(clients), slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func postIntrospect(r http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/connect/introspect", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleIntrospect_Active(t *testing.T) {
	router := newRouter(t, &stubResolver{result: &models.Result{
		Active:           true,
		CDRArrangementID: "arr-1",
		Scope:            "openid",
		Exp:              1750000000,
	}})

	rec := postIntrospect(router, url.Values{
		"client_id":     {testClientID},
		"client_secret": {testSecret},
		"token":         {"rt-1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Active)
	assert.Equal(t, "arr-1", body.CDRArrangementID)
}

func TestHandleIntrospect_InactiveIsStill200(t *testing.T) {
	router := newRouter(t, &stubResolver{result: &models.Result{Active: false}})

	rec := postIntrospect(router, url.Values{
		"client_id":     {testClientID},
		"client_secret": {testSecret},
		"token":         {"expired-or-unknown"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"active": false}`, rec.Body.String())
}

func TestHandleIntrospect_BadCredentials(t *testing.T) {
	router := newRouter(t, &stubResolver{result: &models.Result{Active: false}})

	rec := postIntrospect(router, url.Values{
		"client_id":     {testClientID},
		"client_secret": {"wrong"},
		"token":         {"rt-1"},
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body authzerror.OAuthError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_client", body.Error)
}

func TestHandleIntrospect_StoreOutage(t *testing.T) {
	router := newRouter(t, &stubResolver{err: dErrors.New(dErrors.CodeUnavailable, "grant store unavailable")})

	rec := postIntrospect(router, url.Values{
		"client_id":     {testClientID},
		"client_secret": {testSecret},
		"token":         {"rt-1"},
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
