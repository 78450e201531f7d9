package idperm

import (
	dErrors "custodia/pkg/domain-errors"
)

// contextSeparator joins context fields into the canonical string fed to key
// derivation. Field order and separator are part of the contract: changing
// either invalidates every previously issued identifier.
const contextSeparator = "|"

// ResourceContext scopes resource identifiers (accounts, transactions) to a
// software product and the customer who owns the data.
type ResourceContext struct {
	SoftwareProductID string
	CustomerID        string
}

func (c ResourceContext) validate() error {
	if c.SoftwareProductID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "software product id is required")
	}
	if c.CustomerID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "customer id is required")
	}
	return nil
}

func (c ResourceContext) canonical() string {
	return "resource" + contextSeparator + c.SoftwareProductID + contextSeparator + c.CustomerID
}

// SubjectContext scopes the pairwise subject claim. Clients sharing a sector
// identifier see the same pseudonymous subject; unrelated clients cannot
// correlate customers.
type SubjectContext struct {
	SoftwareProductID   string
	SectorIdentifierURI string
}

func (c SubjectContext) validate() error {
	if c.SoftwareProductID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "software product id is required")
	}
	if c.SectorIdentifierURI == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "sector identifier uri is required")
	}
	return nil
}

func (c SubjectContext) canonical() string {
	return "subject" + contextSeparator + c.SoftwareProductID + contextSeparator + c.SectorIdentifierURI
}
