package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"custodia/internal/arrangement/models"
	"custodia/internal/grants"
	"custodia/internal/grants/mocks"
	dErrors "custodia/pkg/domain-errors"
)

func TestRevokeByArrangementID_StoreFailures(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	svc, err := New(store)
	require.NoError(t, err)

	record := &grants.Record{
		Key:      "arr-1",
		Type:     grants.TypeArrangement,
		ClientID: "client-1",
		Data:     map[string]string{"refresh_token_key": "rt-1"},
	}

	t.Run("lookup outage", func(t *testing.T) {
		store.EXPECT().Get(gomock.Any(), "arr-1").Return(nil, errors.New("connection refused"))

		_, err := svc.RevokeByArrangementID(ctx, "arr-1", "client-1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("refresh token removal fails", func(t *testing.T) {
		store.EXPECT().Get(gomock.Any(), "arr-1").Return(record, nil)
		store.EXPECT().Remove(gomock.Any(), "rt-1").Return(errors.New("connection refused"))

		_, err := svc.RevokeByArrangementID(ctx, "arr-1", "client-1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("record removal fails after token removal", func(t *testing.T) {
		// Token revoked, consent record removal pending: the caller can
		// retry and the retry must be safe.
		store.EXPECT().Get(gomock.Any(), "arr-1").Return(record, nil)
		store.EXPECT().Remove(gomock.Any(), "rt-1").Return(nil)
		store.EXPECT().Remove(gomock.Any(), "arr-1").Return(errors.New("connection refused"))

		_, err := svc.RevokeByArrangementID(ctx, "arr-1", "client-1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))

		// Retry: record still present, token already gone (removal of an
		// absent key is a no-op).
		store.EXPECT().Get(gomock.Any(), "arr-1").Return(record, nil)
		store.EXPECT().Remove(gomock.Any(), "rt-1").Return(nil)
		store.EXPECT().Remove(gomock.Any(), "arr-1").Return(nil)

		outcome, err := svc.RevokeByArrangementID(ctx, "arr-1", "client-1")
		require.NoError(t, err)
		assert.Equal(t, models.Revoked, outcome)
	})
}

func TestCreate_StoreFailure(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	svc, err := New(store)
	require.NoError(t, err)

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

	_, err = svc.Create(ctx, CreateRequest{ClientID: "client-1", Subject: "sub"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
