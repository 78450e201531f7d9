// Package clientauth authenticates data-recipient clients on the holder's
// client-authenticated surfaces (PAR, arrangement revocation, introspection).
package clientauth

import (
	dErrors "custodia/pkg/domain-errors"
)

// Client is a registered data-recipient software product.
type Client struct {
	ClientID            string
	SecretHash          string
	SoftwareProductID   string
	SectorIdentifierURI string
	AllowedGrantTypes   []string
	RedirectURIs        []string
	Active              bool
}

// AllowsGrantType reports whether the client may use the supplied grant type.
func (c *Client) AllowsGrantType(grantType string) bool {
	for _, g := range c.AllowedGrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}

// AllowsRedirectURI reports whether the URI is pre-registered for the client.
// Exact string match; no prefix or wildcard logic.
func (c *Client) AllowsRedirectURI(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

func (c *Client) validate() error {
	if c.ClientID == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "client_id cannot be empty")
	}
	if c.SoftwareProductID == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "software_product_id cannot be empty")
	}
	if len(c.RedirectURIs) == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "redirect_uris cannot be empty")
	}
	return nil
}
