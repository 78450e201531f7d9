package service

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"custodia/internal/clientauth"
	"custodia/internal/introspection/models"
	"custodia/pkg/platform/sentinel"
)

// JWTTokenValidator validates self-contained refresh tokens: signed JWTs
// carrying the pairwise subject and its context as claims. Deployments using
// reference tokens use StoreTokenValidator instead.
type JWTTokenValidator struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewJWTTokenValidator constructs a validator around the given keyfunc.
func NewJWTTokenValidator(keyfunc jwt.Keyfunc) *JWTTokenValidator {
	return &JWTTokenValidator{
		keyfunc: keyfunc,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"PS256", "ES256", "RS256"}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (v *JWTTokenValidator) Validate(_ context.Context, refreshToken string, client *clientauth.Client) (*models.TokenClaims, error) {
	mapClaims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(refreshToken, mapClaims, v.keyfunc); err != nil {
		// Malformed, expired, or forged: all indistinguishable from an
		// unknown token.
		return nil, sentinel.ErrNotFound
	}

	if aud, _ := mapClaims["client_id"].(string); aud != client.ClientID {
		return nil, sentinel.ErrNotFound
	}

	claims := &models.TokenClaims{}
	claims.Subject, _ = mapClaims["sub"].(string)
	claims.SoftwareProductID, _ = mapClaims["software_product_id"].(string)
	claims.SectorIdentifierURI, _ = mapClaims["sector_identifier_uri"].(string)
	if claims.Subject == "" || claims.SoftwareProductID == "" || claims.SectorIdentifierURI == "" {
		return nil, sentinel.ErrInvalidState
	}
	return claims, nil
}
