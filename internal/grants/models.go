// Package grants models the persisted-grant key/value store shared by the
// arrangement, PAR and introspection flows. The store gives per-key atomicity
// only; callers needing multi-key changes must be idempotent and retry-safe.
package grants

import "time"

// Type tags a persisted grant so flows can filter what they own.
type Type string

const (
	// TypeArrangement is the consent record for a client+subject pair.
	TypeArrangement Type = "consent_arrangement"
	// TypeRefreshToken is the grant backing an issued refresh token.
	TypeRefreshToken Type = "refresh_token"
	// TypePARRequest is a pushed authorization request awaiting redemption.
	TypePARRequest Type = "par_request"
)

// Record is a persisted grant. Data carries flow-specific fields (scope,
// subject claims, signed request objects) as opaque strings.
type Record struct {
	Key       string
	Type      Type
	ClientID  string
	SubjectID string
	Data      map[string]string
	CreatedAt time.Time
	// ExpiresAt zero means no expiry. Expired records are treated as absent
	// by every store implementation.
	ExpiresAt time.Time
}

// Expired reports whether the record is past its expiry at the given instant.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !r.ExpiresAt.After(now)
}
