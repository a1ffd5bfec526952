// Package domain holds the aura board models. They double as gorm models and wire types.
package domain

import "time"

// User is an account that can sign in and create or join rooms.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"type:varchar(191);uniqueIndex:idx_email;not null" json:"email"`
	DisplayName string    `gorm:"type:varchar(100);not null" json:"display_name"`
	Password    string    `gorm:"type:text;not null" json:"-"` // bcrypt hash, never serialized
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
