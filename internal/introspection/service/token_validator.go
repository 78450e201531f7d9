package service

import (
	"context"
	"errors"

	"custodia/internal/clientauth"
	"custodia/internal/grants"
	"custodia/internal/introspection/models"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// Data keys inside a refresh-token grant record.
const (
	dataSubject             = "sub"
	dataSoftwareProductID   = "software_product_id"
	dataSectorIdentifierURI = "sector_identifier_uri"
)

// StoreTokenValidator validates reference-style refresh tokens: the token
// value is the grant-store key of a refresh-token record. Expiry is enforced
// by the store.
type StoreTokenValidator struct {
	store grants.Store
}

// NewStoreTokenValidator constructs a grant-store-backed validator.
func NewStoreTokenValidator(store grants.Store) *StoreTokenValidator {
	return &StoreTokenValidator{store: store}
}

func (v *StoreTokenValidator) Validate(ctx context.Context, refreshToken string, client *clientauth.Client) (*models.TokenClaims, error) {
	record, err := v.store.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "grant store unavailable")
	}
	if record.Type != grants.TypeRefreshToken {
		return nil, sentinel.ErrNotFound
	}
	// A token presented by a client other than its issuer is unknown, not
	// forbidden; revealing the difference would leak token existence.
	if record.ClientID != client.ClientID {
		return nil, sentinel.ErrNotFound
	}

	claims := &models.TokenClaims{
		Subject:             record.Data[dataSubject],
		SoftwareProductID:   record.Data[dataSoftwareProductID],
		SectorIdentifierURI: record.Data[dataSectorIdentifierURI],
	}
	if claims.Subject == "" || claims.SoftwareProductID == "" || claims.SectorIdentifierURI == "" {
		return nil, sentinel.ErrInvalidState
	}
	return claims, nil
}
