package models

import (
	"time"

	"gorm.io/gorm"
)

// MemberMirror is a local snapshot of user profile data needed for display
// (leaderboards, key usage listings). Owned solely by the incentive service;
// populated by the member sync worker from the profile service.
type MemberMirror struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex;not null" json:"external_user_id"` // profile service UUID
	Username       string    `gorm:"index;not null" json:"username"`
	DisplayName    *string   `json:"display_name,omitempty"`
	AvatarURL      *string   `json:"avatar_url,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
