package authzerror

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDetailsStore(t *testing.T) {
	store := NewMemoryDetailsStore(time.Minute)
	store.Put("e1", Details{Code: "access_denied", State: "s"})

	details, err := store.Resolve(context.Background(), "e1")
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, "access_denied", details.Code)

	// Consumed on read.
	details, err = store.Resolve(context.Background(), "e1")
	require.NoError(t, err)
	assert.Nil(t, details)
}

func TestMemoryDetailsStore_Expiry(t *testing.T) {
	now := time.Now()
	store := NewMemoryDetailsStore(time.Minute)
	store.clock = func() time.Time { return now }

	store.Put("e1", Details{Code: "access_denied"})
	now = now.Add(2 * time.Minute)

	details, err := store.Resolve(context.Background(), "e1")
	require.NoError(t, err)
	assert.Nil(t, details)
}
