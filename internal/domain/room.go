package domain

import "time"

// Room is the sharing scope for a set of participants, joined via invite code.
type Room struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:50;not null" json:"name"`
	CreatorID  uint      `gorm:"index;not null" json:"created_by"`
	InviteCode string    `gorm:"uniqueIndex;size:191;not null" json:"invite_code"` // 6 chars, upper case
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	LastActive time.Time `gorm:"index" json:"last_active"` // refreshed asynchronously by the worker
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
