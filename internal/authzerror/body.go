package authzerror

import (
	"encoding/json"
	"net/http"
)

// CDS error URNs carried in field-error responses.
const (
	URNInvalidArrangement = "urn:au-cds:error:cds-all:Authorisation/InvalidArrangement"
	URNFieldMissing       = "urn:au-cds:error:cds-all:Field/Missing"
	URNFieldInvalid       = "urn:au-cds:error:cds-all:Field/Invalid"
)

// FieldError is a single entry in a structured field-error response body.
type FieldError struct {
	Code   string         `json:"code"`
	Title  string         `json:"title"`
	Detail string         `json:"detail"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// FieldErrors is the envelope for one or more field errors.
type FieldErrors struct {
	Errors []FieldError `json:"errors"`
}

// InvalidArrangement builds the field error returned when a revocation names
// an arrangement the requesting client cannot act on. The same body covers
// "does not exist" and "belongs to someone else" so callers cannot probe for
// other clients' arrangement ids.
func InvalidArrangement(arrangementID string) FieldError {
	return FieldError{
		Code:   URNInvalidArrangement,
		Title:  "Invalid Consent Arrangement",
		Detail: arrangementID,
	}
}

// MissingField builds the field error for a required form parameter that was
// not supplied.
func MissingField(field string) FieldError {
	return FieldError{
		Code:   URNFieldMissing,
		Title:  "Missing Required Field",
		Detail: field,
	}
}

// InvalidField builds the field error for a supplied but unusable parameter.
func InvalidField(field, detail string) FieldError {
	return FieldError{
		Code:   URNFieldInvalid,
		Title:  "Invalid Field",
		Detail: detail,
		Meta:   map[string]any{"field": field},
	}
}

// WriteFieldErrors writes a field-error envelope with the given status.
func WriteFieldErrors(w http.ResponseWriter, status int, errs ...FieldError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(FieldErrors{Errors: errs})
}

// OAuthError is the RFC 6749 style error body used by the PAR endpoint.
type OAuthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteOAuthError writes an {error, error_description} body with the given
// status.
func WriteOAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(OAuthError{Error: code, ErrorDescription: description})
}
