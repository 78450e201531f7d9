package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureRecorder struct {
	key   []byte
	value []byte
}

func (r *captureRecorder) Produce(_ context.Context, key, value []byte) {
	r.key = key
	r.value = value
}

func TestKafkaPublisher_Emit(t *testing.T) {
	recorder := &captureRecorder{}
	publisher := NewKafkaPublisher(recorder, nil)

	err := publisher.Emit(context.Background(), Event{
		Action:   string(EventPARSubmitted),
		ClientID: "client-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "client-1", string(recorder.key))

	var got Event
	require.NoError(t, json.Unmarshal(recorder.value, &got))
	assert.Equal(t, string(EventPARSubmitted), got.Action)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())
}

func TestMemoryPublisher(t *testing.T) {
	publisher := NewMemoryPublisher()
	require.NoError(t, publisher.Emit(context.Background(), Event{Action: "a"}))
	require.NoError(t, publisher.Emit(context.Background(), Event{Action: "b"}))

	events := publisher.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Action)
	assert.NotEmpty(t, events[0].ID)
}
