package tasks

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomActivityTask_RoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 15, 0, time.UTC)
	task, opts, err := NewRoomActivityTask(7, at)
	require.NoError(t, err)
	assert.Equal(t, TypeRoomActivity, task.Type())
	assert.NotEmpty(t, opts)

	p, err := ParseRoomActivity(task)
	require.NoError(t, err)
	assert.Equal(t, uint(7), p.RoomID)
	assert.True(t, at.Equal(p.At))
}

func TestParseRoomActivity_Invalid(t *testing.T) {
	_, err := ParseRoomActivity(asynq.NewTask(TypeRoomActivity, []byte("{")))
	assert.Error(t, err)

	_, err = ParseRoomActivity(asynq.NewTask(TypeRoomActivity, []byte(`{"room_id":0}`)))
	assert.Error(t, err)
}
