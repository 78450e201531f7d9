// Package models defines the refresh-token introspection shapes.
package models

// Result is the introspection response body. Inactive tokens carry only
// {active: false}; nothing else about the token may leak.
type Result struct {
	Active           bool   `json:"active"`
	CDRArrangementID string `json:"cdr_arrangement_id,omitempty"`
	Scope            string `json:"scope,omitempty"`
	Exp              int64  `json:"exp,omitempty"`
}

// TokenClaims is what the refresh-token validator recovers from a live token:
// the pairwise (opaque) subject plus the context needed to reverse it.
type TokenClaims struct {
	Subject             string
	SoftwareProductID   string
	SectorIdentifierURI string
}
