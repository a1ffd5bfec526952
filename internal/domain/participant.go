package domain

import "time"

// Participant is a scored entity in a room.
// Value is the canonical score; Position is a cached display coordinate derived from it.
type Participant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    uint      `gorm:"index;not null" json:"room_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	ImageURL  string    `gorm:"type:mediumtext" json:"image_url,omitempty"` // URL or inline data URL
	Position  float64   `gorm:"not null;default:50" json:"position"`
	Value     int64     `gorm:"index;not null;default:0" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName keeps the table name used by the hosted schema.
func (Participant) TableName() string { return "room_users" }

// ChangeType tags a change feed event.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent is one entry of a room's change feed. It carries the full affected record.
type ChangeEvent struct {
	Type   ChangeType  `json:"type"`
	Record Participant `json:"record"`
}

// Valid reports whether the event type is one the feed understands.
func (e ChangeEvent) Valid() bool {
	switch e.Type {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
		return true
	}
	return false
}
