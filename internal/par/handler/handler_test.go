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
	"custodia/internal/par/models"
	dErrors "custodia/pkg/domain-errors"
)

type stubService struct {
	result *models.Result
	err    error

	gotCreds clientauth.Credentials
	gotForm  url.Values
}

func (s *stubService) Submit(_ context.Context, creds clientauth.Credentials, form url.Values) (*models.Result, error) {
	s.gotCreds = creds
	s.gotForm = form
	return s.result, s.err
}

func postPAR(stub *stubService, form url.Values) *httptest.ResponseRecorder {
	h := New(stub, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	h.Register(r)

	req := httptest.NewRequest(http.MethodPost, "/connect/par", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleSubmit_Created(t *testing.T) {
	stub := &stubService{result: &models.Result{
		RequestURI: models.RequestURIPrefix + "abc",
		ExpiresIn:  90,
	}}

	rec := postPAR(stub, url.Values{
		"client_id":     {"adr-client-1"},
		"client_secret": {"secret"},
		"request":       {"eyJ..."},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var body models.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.RequestURIPrefix+"abc", body.RequestURI)
	assert.Equal(t, 90, body.ExpiresIn)

	assert.Equal(t, "adr-client-1", stub.gotCreds.ClientID)
	assert.Equal(t, "eyJ...", stub.gotForm.Get("request"))
}

func TestHandleSubmit_ErrorMapping(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantDescrip string
	}{
		{
			name:       "unauthorized client",
			err:        dErrors.New(dErrors.CodeUnauthorized, "client authentication failed"),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized_client",
		},
		{
			name:       "request object failed validation",
			err:        dErrors.New(dErrors.CodeValidation, "response_type must be code"),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "request_jwt_failed_validation",
		},
		{
			name:        "structural validation error",
			err:         dErrors.New(dErrors.CodeInvalidInput, "request object is required"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "invalid_request",
			wantDescrip: "request object is required",
		},
		{
			name:       "store outage",
			err:        dErrors.New(dErrors.CodeUnavailable, "grant store unavailable"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "server_error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postPAR(&stubService{err: tc.err}, url.Values{"request": {"x"}})
			require.Equal(t, tc.wantStatus, rec.Code)

			var body authzerror.OAuthError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body.Error)
			if tc.wantDescrip != "" {
				assert.Equal(t, tc.wantDescrip, body.ErrorDescription)
			}
		})
	}
}
