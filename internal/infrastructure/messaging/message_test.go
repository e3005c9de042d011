package messaging

import (
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProjectEvent(t *testing.T) {
	msg, err := NewMessage("m-1", EventProjectDeleted, "p-1", ProjectEvent{ProjectID: "p-1", OwnerIP: "10.0.0.1"})
	require.NoError(t, err)
	msg.SetMetadata("request_id", "r-1")
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	got, err := Decode(redis.XMessage{ID: "1-0", Values: map[string]any{"data": string(data)}})
	require.NoError(t, err)
	assert.Equal(t, EventProjectDeleted, got.Type)
	assert.Equal(t, "r-1", got.Metadata["request_id"])

	var ev ProjectEvent
	require.NoError(t, got.UnmarshalPayload(&ev))
	assert.Equal(t, "10.0.0.1", ev.OwnerIP)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := Decode(redis.XMessage{ID: "1-0", Values: map[string]any{"other": "x"}})
	assert.Error(t, err)
	_, err = Decode(redis.XMessage{ID: "1-0", Values: map[string]any{"data": "{"}})
	assert.Error(t, err)
}
