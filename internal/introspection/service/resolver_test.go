package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arrService "custodia/internal/arrangement/service"
	"custodia/internal/clientauth"
	"custodia/internal/grants"
	"custodia/internal/idperm"
)

const (
	testClientID  = "adr-client-1"
	testProductID = "prod-1"
	testSectorURI = "https://recipient.example/sector"
	testCustomer  = "customer-77"
)

type resolverFixture struct {
	resolver *Resolver
	store    *grants.MemoryStore
	codec    *idperm.Codec
	client   *clientauth.Client
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()

	store := grants.NewMemory()
	codec, err := idperm.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	arrangements, err := arrService.New(store)
	require.NoError(t, err)
	resolver, err := NewResolver(NewStoreTokenValidator(store), codec, arrangements)
	require.NoError(t, err)

	return &resolverFixture{
		resolver: resolver,
		store:    store,
		codec:    codec,
		client: &clientauth.Client{
			ClientID:            testClientID,
			SoftwareProductID:   testProductID,
			SectorIdentifierURI: testSectorURI,
		},
	}
}

// issueToken stores a refresh-token grant carrying the pairwise subject and
// the context needed to reverse it, as the token-issuance flow would.
func (f *resolverFixture) issueToken(t *testing.T, key, clientID string) {
	t.Helper()
	opaqueSub, err := f.codec.EncodeSub(testCustomer, idperm.SubjectContext{
		SoftwareProductID:   testProductID,
		SectorIdentifierURI: testSectorURI,
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Put(context.Background(), &grants.Record{
		Key:      key,
		Type:     grants.TypeRefreshToken,
		ClientID: clientID,
		Data: map[string]string{
			"sub":                   opaqueSub,
			"software_product_id":   testProductID,
			"sector_identifier_uri": testSectorURI,
		},
	}))
}

func TestResolve_Active(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	arr, err := arrService.New(f.store)
	require.NoError(t, err)
	grant, err := arr.Create(ctx, arrService.CreateRequest{
		ClientID:  testClientID,
		Subject:   testCustomer,
		Scope:     []string{"openid", "bank:accounts.basic:read"},
		ExpiresAt: expiry,
	})
	require.NoError(t, err)
	f.issueToken(t, "rt-1", testClientID)

	result, err := f.resolver.Resolve(ctx, "rt-1", f.client)
	require.NoError(t, err)
	assert.True(t, result.Active)
	assert.Equal(t, grant.ArrangementID, result.CDRArrangementID)
	assert.Equal(t, "openid bank:accounts.basic:read", result.Scope)
	assert.Equal(t, expiry.Unix(), result.Exp)
}

func TestResolve_UnknownToken(t *testing.T) {
	f := newResolverFixture(t)

	result, err := f.resolver.Resolve(context.Background(), "no-such-token", f.client)
	require.NoError(t, err)
	assert.False(t, result.Active)
	assert.Empty(t, result.CDRArrangementID)
}

func TestResolve_EmptyToken(t *testing.T) {
	f := newResolverFixture(t)

	result, err := f.resolver.Resolve(context.Background(), "", f.client)
	require.NoError(t, err)
	assert.False(t, result.Active)
}

func TestResolve_TokenIssuedToAnotherClient(t *testing.T) {
	f := newResolverFixture(t)
	f.issueToken(t, "rt-1", "some-other-client")

	result, err := f.resolver.Resolve(context.Background(), "rt-1", f.client)
	require.NoError(t, err)
	assert.False(t, result.Active)
}

func TestResolve_ValidTokenWithoutArrangement(t *testing.T) {
	// Token checks out but no arrangement exists behind it: inconsistent
	// state reported as inactive, never as an error.
	f := newResolverFixture(t)
	f.issueToken(t, "rt-1", testClientID)

	result, err := f.resolver.Resolve(context.Background(), "rt-1", f.client)
	require.NoError(t, err)
	assert.False(t, result.Active)
}

func TestResolve_CorruptedSubject(t *testing.T) {
	f := newResolverFixture(t)
	require.NoError(t, f.store.Put(context.Background(), &grants.Record{
		Key:      "rt-1",
		Type:     grants.TypeRefreshToken,
		ClientID: testClientID,
		Data: map[string]string{
			"sub":                   "not-a-real-opaque-subject",
			"software_product_id":   testProductID,
			"sector_identifier_uri": testSectorURI,
		},
	}))

	result, err := f.resolver.Resolve(context.Background(), "rt-1", f.client)
	require.NoError(t, err)
	assert.False(t, result.Active)
}

func TestResolve_ExpiredToken(t *testing.T) {
	now := time.Now()
	store := grants.NewMemory(grants.WithClock(func() time.Time { return now }))
	f := newResolverFixture(t)
	f.store = store

	codec := f.codec
	arrangements, err := arrService.New(store)
	require.NoError(t, err)
	resolver, err := NewResolver(NewStoreTokenValidator(store), codec, arrangements)
	require.NoError(t, err)

	opaqueSub, err := codec.EncodeSub(testCustomer, idperm.SubjectContext{
		SoftwareProductID:   testProductID,
		SectorIdentifierURI: testSectorURI,
	})
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), &grants.Record{
		Key:      "rt-1",
		Type:     grants.TypeRefreshToken,
		ClientID: testClientID,
		Data: map[string]string{
			"sub":                   opaqueSub,
			"software_product_id":   testProductID,
			"sector_identifier_uri": testSectorURI,
		},
		ExpiresAt: now.Add(time.Minute),
	}))

	now = now.Add(2 * time.Minute)
	result, err := resolver.Resolve(context.Background(), "rt-1", f.client)
	require.NoError(t, err)
	assert.False(t, result.Active)
}
