package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"custodia/internal/clientauth"
	"custodia/internal/par/models"
	dErrors "custodia/pkg/domain-errors"
	pstrings "custodia/pkg/platform/strings"
)

// RequestValidator checks the authorization-request parameters and signed
// request object submitted to the PAR endpoint. Failures carry
// CodeValidation when the request object itself fails validation, and
// CodeInvalidInput for structural problems with the form.
type RequestValidator interface {
	Validate(ctx context.Context, client *clientauth.Client, form url.Values) (*models.AuthorizationRequest, error)
}

// JWTRequestValidator validates the signed request object with golang-jwt.
// The keyfunc resolves the client's registered signing key; key distribution
// itself lives outside this subsystem.
type JWTRequestValidator struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewJWTRequestValidator constructs a validator around the given keyfunc.
func NewJWTRequestValidator(keyfunc jwt.Keyfunc) *JWTRequestValidator {
	return &JWTRequestValidator{
		keyfunc: keyfunc,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"PS256", "ES256", "RS256"}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (v *JWTRequestValidator) Validate(_ context.Context, client *clientauth.Client, form url.Values) (*models.AuthorizationRequest, error) {
	raw := form.Get("request")
	if raw == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "request object is required")
	}
	// request_uri must not itself be pushed.
	if form.Get("request_uri") != "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "request_uri is not accepted at this endpoint")
	}

	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, v.keyfunc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "request object failed validation")
	}

	if clientID, _ := claims["client_id"].(string); clientID != client.ClientID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "request object client_id does not match the authenticated client")
	}

	redirectURI, _ := claims["redirect_uri"].(string)
	if redirectURI == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "request object is missing redirect_uri")
	}
	if !client.AllowsRedirectURI(redirectURI) {
		return nil, dErrors.New(dErrors.CodeValidation, "redirect_uri is not registered for this client")
	}

	if responseType, _ := claims["response_type"].(string); responseType != "code" {
		return nil, dErrors.New(dErrors.CodeValidation, "response_type must be code")
	}

	scope, _ := claims["scope"].(string)
	scopes := pstrings.DedupeAndTrim(strings.Fields(scope))
	if len(scopes) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "request object is missing scope")
	}

	// PKCE is mandatory across this ecosystem, S256 only.
	challenge, _ := claims["code_challenge"].(string)
	if challenge == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "code_challenge is required")
	}
	if method, _ := claims["code_challenge_method"].(string); method != "S256" {
		return nil, dErrors.New(dErrors.CodeValidation, "code_challenge_method must be S256")
	}

	responseMode, _ := claims["response_mode"].(string)
	state, _ := claims["state"].(string)
	nonce, _ := claims["nonce"].(string)

	return &models.AuthorizationRequest{
		ClientID:     client.ClientID,
		RedirectURI:  redirectURI,
		ResponseMode: responseMode,
		Scope:        scopes,
		State:        state,
		Nonce:        nonce,
	}, nil
}
