// Package authzerror maps internal authorization-flow failures to the small
// public error taxonomy surfaced to data recipients, and decides whether a
// failure is returned directly or encoded onto the client's redirect URI.
package authzerror

import "strings"

// PublicError is the externally visible shape of an authorization failure.
// Values come out of the lookup tables below and are never mutated.
type PublicError struct {
	Code        string
	Title       string
	Description string
}

// byCode resolves an upstream error code exactly. Upstream sometimes supplies
// only a generic code with a specific description, or the reverse, hence the
// second description-based stage below.
var byCode = map[string]PublicError{
	"unauthorized_client": {
		Code:        "unauthorized_client",
		Title:       "Unauthorized Client",
		Description: "The client is not authorized to use this authorization flow",
	},
	"access_denied": {
		Code:        "access_denied",
		Title:       "Access Denied",
		Description: "The resource owner or authorization server denied the request",
	},
	"invalid_request_uri": {
		Code:        "invalid_request_uri",
		Title:       "Invalid Request URI",
		Description: "The request_uri is invalid, expired, or has already been used",
	},
	"invalid_request_object": {
		Code:        "invalid_request_object",
		Title:       "Invalid Request Object",
		Description: "The signed request object failed validation",
	},
	"invalid_scope": {
		Code:        "invalid_scope",
		Title:       "Invalid Scope",
		Description: "The requested scope is invalid, unknown, or exceeds what the client may request",
	},
	"login_required": {
		Code:        "login_required",
		Title:       "Login Required",
		Description: "End-user authentication is required",
	},
	"consent_required": {
		Code:        "consent_required",
		Title:       "Consent Required",
		Description: "End-user consent is required",
	},
	"temporarily_unavailable": {
		Code:        "temporarily_unavailable",
		Title:       "Temporarily Unavailable",
		Description: "The authorization server is temporarily unable to handle the request",
	},
}

type descriptionRule struct {
	match  string
	public PublicError
}

// byDescription resolves errors where upstream hands us a generic code but a
// recognizable description. Matched in order, first substring hit wins.
var byDescription = []descriptionRule{
	{
		match: "request_uri has expired",
		public: PublicError{
			Code:        "invalid_request_uri",
			Title:       "Invalid Request URI",
			Description: "The request_uri is invalid, expired, or has already been used",
		},
	},
	{
		match: "arrangement",
		public: PublicError{
			Code:        "invalid_request",
			Title:       "Invalid Consent Arrangement",
			Description: "The nominated consent arrangement could not be used for this request",
		},
	},
	{
		match: "sharing duration",
		public: PublicError{
			Code:        "invalid_request",
			Title:       "Invalid Sharing Duration",
			Description: "The requested sharing duration is outside the permitted range",
		},
	},
	{
		match: "client certificate",
		public: PublicError{
			Code:        "unauthorized_client",
			Title:       "Unauthorized Client",
			Description: "Mutual-TLS client authentication failed",
		},
	},
}

// Translate maps an internal (code, description) pair to a PublicError.
// Lookup order: exact code, then description substring, then echo the
// internal values unchanged so nothing is silently swallowed.
func Translate(code, description string) PublicError {
	if public, ok := byCode[code]; ok {
		return public
	}
	lowered := strings.ToLower(description)
	for _, rule := range byDescription {
		if strings.Contains(lowered, rule.match) {
			return rule.public
		}
	}
	return PublicError{Code: code, Title: "Authorization Error", Description: description}
}
