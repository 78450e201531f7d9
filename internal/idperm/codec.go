// Package idperm implements ID Permanence: the deterministic, tamper-evident
// mapping between internal identifiers and the opaque identifiers that leave
// the data holder's perimeter.
//
// Identifiers are sealed with AES-256-GCM under a key derived per context via
// HKDF-SHA256. The nonce is itself derived from the plaintext and context, so
// the same (id, context, master key) triple always produces byte-identical
// output. That determinism is what makes external identifiers permanent.
package idperm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/hkdf"

	dErrors "custodia/pkg/domain-errors"
)

// ErrDecryptionFailed is returned for any opaque identifier that does not
// authenticate under the given context and key: wrong key, wrong context,
// corrupted or foreign input. The cases are deliberately indistinguishable.
var ErrDecryptionFailed = dErrors.New(dErrors.CodeDecryptionFailed, "identifier could not be decoded")

const (
	gcmNonceSize = 12
	derivedLen   = 64 // 32 bytes AES key + 32 bytes nonce MAC key

	hkdfInfoPrefix = "custodia/idperm/v1:"
)

// Codec encodes and decodes identifiers under a master key. Methods are pure
// and safe for concurrent use.
type Codec struct {
	masterKey []byte
}

// New constructs a Codec. The master key comes from external configuration
// and must never be logged.
func New(masterKey []byte) (*Codec, error) {
	if len(masterKey) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "master key is required")
	}
	key := make([]byte, len(masterKey))
	copy(key, masterKey)
	return &Codec{masterKey: key}, nil
}

// Encode seals an internal resource identifier under the resource context.
func (c *Codec) Encode(internalID string, ctx ResourceContext) (string, error) {
	if err := ctx.validate(); err != nil {
		return "", err
	}
	return c.seal(internalID, ctx.canonical())
}

// Decode recovers the internal identifier from an opaque one. Fails with
// ErrDecryptionFailed unless the same context and master key were used to
// encode it.
func (c *Codec) Decode(opaque string, ctx ResourceContext) (string, error) {
	if err := ctx.validate(); err != nil {
		return "", err
	}
	return c.open(opaque, ctx.canonical())
}

// EncodeSub derives the pairwise subject for a customer. Stable for the same
// (software product, sector identifier) pair; unlinkable across products.
func (c *Codec) EncodeSub(customerID string, ctx SubjectContext) (string, error) {
	if err := ctx.validate(); err != nil {
		return "", err
	}
	return c.seal(customerID, ctx.canonical())
}

// DecodeSub recovers the internal customer id from a pairwise subject.
func (c *Codec) DecodeSub(sub string, ctx SubjectContext) (string, error) {
	if err := ctx.validate(); err != nil {
		return "", err
	}
	return c.open(sub, ctx.canonical())
}

func (c *Codec) seal(plaintext, contextString string) (string, error) {
	if plaintext == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identifier is required")
	}

	aead, nonceKey, err := c.derive(contextString)
	if err != nil {
		return "", err
	}

	nonce := deriveNonce(nonceKey, plaintext)
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	out := make([]byte, 0, gcmNonceSize+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (c *Codec) open(opaque, contextString string) (string, error) {
	if opaque == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "opaque identifier is required")
	}

	aead, _, err := c.derive(contextString)
	if err != nil {
		return "", err
	}

	raw, err := base64.RawURLEncoding.DecodeString(opaque)
	if err != nil || len(raw) <= gcmNonceSize {
		return "", ErrDecryptionFailed
	}

	plaintext, err := aead.Open(nil, raw[:gcmNonceSize], raw[gcmNonceSize:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// derive produces the per-context AEAD and nonce MAC key. The context string
// feeds HKDF info, so identifiers encoded under one context never authenticate
// under another.
func (c *Codec) derive(contextString string) (cipher.AEAD, []byte, error) {
	kdf := hkdf.New(sha256.New, c.masterKey, nil, []byte(hkdfInfoPrefix+contextString))
	derived := make([]byte, derivedLen)
	if _, err := io.ReadFull(kdf, derived); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "key derivation failed")
	}

	block, err := aes.NewCipher(derived[:32])
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "cipher init failed")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "aead init failed")
	}
	return aead, derived[32:], nil
}

// deriveNonce computes a synthetic IV from the plaintext. Nonce reuse across
// distinct plaintexts is impossible by construction; reuse for the same
// plaintext is exactly the determinism the scheme requires.
func deriveNonce(nonceKey []byte, plaintext string) []byte {
	mac := hmac.New(sha256.New, nonceKey)
	mac.Write([]byte(plaintext))
	return mac.Sum(nil)[:gcmNonceSize]
}
