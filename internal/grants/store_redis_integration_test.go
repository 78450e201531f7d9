//go:build integration

package grants_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/grants"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *grants.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = grants.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) makeRecord(key, clientID string, typ grants.Type) *grants.Record {
	return &grants.Record{
		Key:       key,
		Type:      typ,
		ClientID:  clientID,
		SubjectID: "customer-1",
		Data:      map[string]string{"scope": "bank:accounts.basic:read"},
		CreatedAt: time.Now().UTC(),
	}
}

func (s *RedisStoreSuite) TestPutGetRoundTrip() {
	ctx := context.Background()

	record := s.makeRecord("arr-1", "client-a", grants.TypeArrangement)
	s.Require().NoError(s.store.Put(ctx, record))

	got, err := s.store.Get(ctx, "arr-1")
	s.Require().NoError(err)
	s.Equal("client-a", got.ClientID)
	s.Equal(grants.TypeArrangement, got.Type)
	s.Equal("bank:accounts.basic:read", got.Data["scope"])
}

func (s *RedisStoreSuite) TestCreateConflict() {
	ctx := context.Background()

	s.Require().NoError(s.store.Create(ctx, s.makeRecord("par-1", "client-a", grants.TypePARRequest)))
	err := s.store.Create(ctx, s.makeRecord("par-1", "client-b", grants.TypePARRequest))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *RedisStoreSuite) TestNativeTTLExpiry() {
	ctx := context.Background()

	record := s.makeRecord("par-ttl", "client-a", grants.TypePARRequest)
	record.ExpiresAt = time.Now().Add(1 * time.Second)
	s.Require().NoError(s.store.Put(ctx, record))

	_, err := s.store.Get(ctx, "par-ttl")
	s.Require().NoError(err)

	time.Sleep(1500 * time.Millisecond)

	_, err = s.store.Get(ctx, "par-ttl")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestRemoveIsIdempotent() {
	ctx := context.Background()

	s.Require().NoError(s.store.Put(ctx, s.makeRecord("arr-1", "client-a", grants.TypeArrangement)))
	s.Require().NoError(s.store.Remove(ctx, "arr-1"))
	s.NoError(s.store.Remove(ctx, "arr-1"))

	_, err := s.store.Get(ctx, "arr-1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestGetAllByClientIDPrunesStaleIndex() {
	ctx := context.Background()

	s.Require().NoError(s.store.Put(ctx, s.makeRecord("arr-1", "client-a", grants.TypeArrangement)))
	s.Require().NoError(s.store.Put(ctx, s.makeRecord("rt-1", "client-a", grants.TypeRefreshToken)))
	s.Require().NoError(s.store.Put(ctx, s.makeRecord("arr-2", "client-b", grants.TypeArrangement)))

	short := s.makeRecord("par-1", "client-a", grants.TypePARRequest)
	short.ExpiresAt = time.Now().Add(500 * time.Millisecond)
	s.Require().NoError(s.store.Put(ctx, short))

	time.Sleep(700 * time.Millisecond)

	records, err := s.store.GetAllByClientID(ctx, "client-a")
	s.Require().NoError(err)
	s.Len(records, 2)
	for _, r := range records {
		s.Equal("client-a", r.ClientID)
	}
}
