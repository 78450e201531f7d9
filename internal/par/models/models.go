// Package models defines the pushed-authorization-request records exchanged
// between the PAR endpoint, the grant store, and the authorize flow.
package models

import "time"

// RequestURIPrefix is the URN namespace for issued request URIs.
const RequestURIPrefix = "urn:ietf:params:oauth:request_uri:"

// Request is a registered pushed authorization request. Created once, read at
// most once by the authorize flow, never mutated. Expiry is enforced by the
// grant store.
type Request struct {
	RequestURI    string
	RequestObject string
	ClientID      string
	RedirectURI   string
	ResponseMode  string
	Scope         []string
	State         string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Result is returned to the client on successful registration.
type Result struct {
	RequestURI string `json:"request_uri"`
	ExpiresIn  int    `json:"expires_in"`
}

// AuthorizationRequest is the validated content of a signed request object.
type AuthorizationRequest struct {
	ClientID     string
	RedirectURI  string
	ResponseMode string
	Scope        []string
	State        string
	Nonce        string
}
