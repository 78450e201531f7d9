package authzerror

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslate_ByCode(t *testing.T) {
	public := Translate("unauthorized_client", "whatever upstream said")
	assert.Equal(t, "unauthorized_client", public.Code)
	assert.Equal(t, "Unauthorized Client", public.Title)
	assert.Equal(t, "The client is not authorized to use this authorization flow", public.Description)
}

func TestTranslate_ByDescription(t *testing.T) {
	// Upstream hands a generic code with a recognizable description.
	public := Translate("invalid_request", "the nominated Arrangement was revoked")
	assert.Equal(t, "invalid_request", public.Code)
	assert.Equal(t, "Invalid Consent Arrangement", public.Title)

	public = Translate("server_error", "request_uri has expired")
	assert.Equal(t, "invalid_request_uri", public.Code)
}

func TestTranslate_CodeWinsOverDescription(t *testing.T) {
	public := Translate("access_denied", "arrangement something")
	assert.Equal(t, "Access Denied", public.Title)
}

func TestTranslate_Fallback(t *testing.T) {
	public := Translate("weird_internal_code", "nothing matches this")
	assert.Equal(t, "weird_internal_code", public.Code)
	assert.Equal(t, "Authorization Error", public.Title)
	assert.Equal(t, "nothing matches this", public.Description)
}
