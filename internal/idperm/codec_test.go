package idperm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "custodia/pkg/domain-errors"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec(t *testing.T, key []byte) *Codec {
	t.Helper()
	c, err := New(key)
	require.NoError(t, err)
	return c
}

func resourceCtx() ResourceContext {
	return ResourceContext{SoftwareProductID: "product-a", CustomerID: "customer-1"}
}

func TestEncodeIsDeterministic(t *testing.T) {
	c := newTestCodec(t, testKey)

	first, err := c.Encode("ACC-001", resourceCtx())
	require.NoError(t, err)
	second, err := c.Encode("ACC-001", resourceCtx())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecodeReversesEncode(t *testing.T) {
	c := newTestCodec(t, testKey)

	opaque, err := c.Encode("TRX-42", resourceCtx())
	require.NoError(t, err)

	got, err := c.Decode(opaque, resourceCtx())
	require.NoError(t, err)
	assert.Equal(t, "TRX-42", got)
}

func TestDecodeWithDifferentKeyFails(t *testing.T) {
	c := newTestCodec(t, testKey)
	other := newTestCodec(t, []byte("ffffffffffffffffffffffffffffffff"))

	opaque, err := c.Encode("ACC-001", resourceCtx())
	require.NoError(t, err)

	_, err = other.Decode(opaque, resourceCtx())
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecodeWithDifferentContextFails(t *testing.T) {
	c := newTestCodec(t, testKey)

	opaque, err := c.Encode("ACC-001", resourceCtx())
	require.NoError(t, err)

	wrongProduct := ResourceContext{SoftwareProductID: "product-b", CustomerID: "customer-1"}
	_, err = c.Decode(opaque, wrongProduct)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	wrongCustomer := ResourceContext{SoftwareProductID: "product-a", CustomerID: "customer-2"}
	_, err = c.Decode(opaque, wrongCustomer)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecodeGarbageFails(t *testing.T) {
	c := newTestCodec(t, testKey)

	for _, opaque := range []string{"not-base64!!!", "c2hvcnQ", strings.Repeat("A", 80)} {
		_, err := c.Decode(opaque, resourceCtx())
		assert.ErrorIs(t, err, ErrDecryptionFailed, "input %q", opaque)
	}
}

func TestDistinctIdentifiersProduceDistinctOutput(t *testing.T) {
	c := newTestCodec(t, testKey)

	a, err := c.Encode("TRX111", resourceCtx())
	require.NoError(t, err)
	b, err := c.Encode("TRX112", resourceCtx())
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSubjectUnlinkabilityAcrossProducts(t *testing.T) {
	c := newTestCodec(t, testKey)
	sector := "https://sector.example.com/ids"

	subA, err := c.EncodeSub("customer-1", SubjectContext{SoftwareProductID: "product-a", SectorIdentifierURI: sector})
	require.NoError(t, err)
	subB, err := c.EncodeSub("customer-1", SubjectContext{SoftwareProductID: "product-b", SectorIdentifierURI: sector})
	require.NoError(t, err)

	assert.NotEqual(t, subA, subB)
}

func TestSubjectStableForSameProductAndSector(t *testing.T) {
	c := newTestCodec(t, testKey)
	ctx := SubjectContext{SoftwareProductID: "product-a", SectorIdentifierURI: "https://sector.example.com/ids"}

	first, err := c.EncodeSub("customer-1", ctx)
	require.NoError(t, err)
	second, err := c.EncodeSub("customer-1", ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err := c.DecodeSub(first, ctx)
	require.NoError(t, err)
	assert.Equal(t, "customer-1", got)
}

func TestValidationFailsFast(t *testing.T) {
	c := newTestCodec(t, testKey)

	_, err := c.Encode("", resourceCtx())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = c.Encode("ACC-001", ResourceContext{CustomerID: "customer-1"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = c.EncodeSub("customer-1", SubjectContext{SoftwareProductID: "product-a"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = New(nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// End-to-end scenario from the holder's account API: encode an account id,
// decode with the right key, then with a truncated key.
func TestAccountIDRoundTrip(t *testing.T) {
	c := newTestCodec(t, testKey)
	ctx := ResourceContext{SoftwareProductID: "P", CustomerID: "C"}

	opaque, err := c.Encode("1122334455", ctx)
	require.NoError(t, err)

	got, err := c.Decode(opaque, ctx)
	require.NoError(t, err)
	assert.Equal(t, "1122334455", got)

	truncated := newTestCodec(t, testKey[:len(testKey)-1])
	_, err = truncated.Decode(opaque, ctx)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	var de *dErrors.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, dErrors.CodeDecryptionFailed, de.Code)
}
