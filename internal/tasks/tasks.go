package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types.
const (
	TypeRoomActivity      = "room:activity"       // a room's participants changed
	TypeRoomPresenceSweep = "room:presence_sweep" // periodic; rooms with live viewers
)

// QueueLow is where bookkeeping tasks go.
const QueueLow = "low"

// RoomActivityPayload is the payload of TypeRoomActivity.
type RoomActivityPayload struct {
	RoomID uint      `json:"room_id"`
	At     time.Time `json:"at"`
}

// NewRoomActivityTask builds a TypeRoomActivity task. Tasks for the same room
// within one minute share an id, so bursts of edits collapse into one.
func NewRoomActivityTask(roomID uint, at time.Time) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(RoomActivityPayload{RoomID: roomID, At: at.UTC()})
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{
		asynq.Queue(QueueLow),
		asynq.MaxRetry(3),
		asynq.TaskID(fmt.Sprintf("room-activity:%d:%d", roomID, at.Unix()/60)),
		asynq.Retention(time.Minute),
	}
	return asynq.NewTask(TypeRoomActivity, payload), opts, nil
}

// ParseRoomActivity decodes a TypeRoomActivity payload.
func ParseRoomActivity(t *asynq.Task) (RoomActivityPayload, error) {
	var p RoomActivityPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, err
	}
	if p.RoomID == 0 {
		return p, fmt.Errorf("room activity payload without room_id")
	}
	return p, nil
}

// NewRoomPresenceSweepTask builds the periodic TypeRoomPresenceSweep task.
func NewRoomPresenceSweepTask() *asynq.Task {
	return asynq.NewTask(TypeRoomPresenceSweep, nil)
}
