package authzerror

import (
	"net/url"
	"strings"

	dErrors "custodia/pkg/domain-errors"
)

// Response modes negotiated for an authorization flow.
const (
	ResponseModeQuery    = "query"
	ResponseModeFragment = "fragment"
)

// ErrorLocation builds the redirect target that carries a public error back
// to the client. The state value is appended byte-for-byte, never re-encoded,
// so the client's own correlation value round-trips exactly as submitted.
//
// Returns a typed error when redirectURI is missing or not an absolute URL;
// callers must then fall back to a direct response rather than redirect to an
// unverified location.
func ErrorLocation(redirectURI, responseMode, state string, public PublicError) (string, error) {
	if redirectURI == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "redirect uri is missing")
	}
	target, err := url.Parse(redirectURI)
	if err != nil || !target.IsAbs() || target.Host == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "redirect uri is not an absolute url")
	}

	var params strings.Builder
	params.WriteString("error=")
	params.WriteString(url.QueryEscape(public.Code))
	params.WriteString("&error_description=")
	params.WriteString(url.QueryEscape(public.Description))
	if state != "" {
		params.WriteString("&state=")
		params.WriteString(state)
	}

	switch responseMode {
	case ResponseModeFragment:
		return redirectURI + "#" + params.String(), nil
	default:
		separator := "?"
		if strings.Contains(redirectURI, "?") {
			separator = "&"
		}
		return redirectURI + separator + params.String(), nil
	}
}
