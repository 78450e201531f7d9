// Package models holds the domain types for consent arrangements.
package models

import "time"

// Grant is an active consent arrangement between a customer and a
// data-recipient client. ArrangementID is the opaque external identifier;
// Subject is the internal customer identifier and must never leave the
// perimeter unencoded.
type Grant struct {
	ArrangementID string
	ClientID      string
	Subject       string
	Scope         []string
	// RefreshTokenKey points at the refresh-token grant in the store.
	// Empty when no refresh token is currently live; the arrangement is
	// then logically inert but may exist transiently mid-revocation.
	RefreshTokenKey string
	// AuthCode is only held between authorization and the first
	// refresh-token issuance, then cleared.
	AuthCode  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// RevocationOutcome is the tri-state result of a revocation attempt. It is
// deliberately not a bool or error: the three cases map to three different
// HTTP responses.
type RevocationOutcome int

const (
	// Revoked: the arrangement belonged to the caller and was removed.
	Revoked RevocationOutcome = iota
	// NotFound: no grant matches the arrangement id.
	NotFound
	// WrongClient: the arrangement exists but belongs to another client.
	// Nothing was mutated.
	WrongClient
)

func (o RevocationOutcome) String() string {
	switch o {
	case Revoked:
		return "revoked"
	case NotFound:
		return "not_found"
	case WrongClient:
		return "wrong_client"
	default:
		return "unknown"
	}
}
