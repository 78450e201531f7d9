package authzerror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "custodia/pkg/domain-errors"
)

func TestErrorLocation_Query(t *testing.T) {
	public := PublicError{Code: "access_denied", Description: "The resource owner or authorization server denied the request"}

	location, err := ErrorLocation("https://client.example/cb", ResponseModeQuery, "xyz", public)
	require.NoError(t, err)
	assert.Equal(t,
		"https://client.example/cb?error=access_denied&error_description=The+resource+owner+or+authorization+server+denied+the+request&state=xyz",
		location)
}

func TestErrorLocation_QueryAppendsToExisting(t *testing.T) {
	public := PublicError{Code: "access_denied", Description: "denied"}

	location, err := ErrorLocation("https://client.example/cb?app=1", ResponseModeQuery, "", public)
	require.NoError(t, err)
	assert.Equal(t, "https://client.example/cb?app=1&error=access_denied&error_description=denied", location)
}

func TestErrorLocation_Fragment(t *testing.T) {
	public := PublicError{Code: "login_required", Description: "End-user authentication is required"}

	location, err := ErrorLocation("https://client.example/cb", ResponseModeFragment, "s1", public)
	require.NoError(t, err)
	assert.Equal(t,
		"https://client.example/cb#error=login_required&error_description=End-user+authentication+is+required&state=s1",
		location)
}

func TestErrorLocation_StateEchoedVerbatim(t *testing.T) {
	// State must round-trip byte-for-byte, even when it contains characters
	// that would normally be percent-encoded.
	public := PublicError{Code: "access_denied", Description: "denied"}

	location, err := ErrorLocation("https://client.example/cb", ResponseModeFragment, "a%2Bb c", public)
	require.NoError(t, err)
	assert.Contains(t, location, "&state=a%2Bb c")
}

func TestErrorLocation_RejectsUntrustworthyTargets(t *testing.T) {
	public := PublicError{Code: "access_denied", Description: "denied"}

	for _, target := range []string{"", "not a url at all\x7f://", "/relative/path", "client.example/cb"} {
		_, err := ErrorLocation(target, ResponseModeQuery, "", public)
		require.Error(t, err, "target %q", target)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}
