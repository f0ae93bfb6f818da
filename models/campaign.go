package models

import (
	"time"

	"gorm.io/gorm"
)

// CampaignKind distinguishes always-on campaigns from time-boxed ones
type CampaignKind string

const (
	CampaignKindPermanent CampaignKind = "permanent"
	CampaignKindLimited   CampaignKind = "limited"
)

// Campaign is the top-level container for incentive activities within an org.
// Soft-deleted via IsActive=false; rows are never hard-deleted while activities
// still reference them.
type Campaign struct {
	ID           string       `gorm:"primaryKey;type:uuid" json:"id"`
	OrgID        string       `gorm:"index;not null" json:"org_id"` // external org identifier
	Name         string       `gorm:"not null" json:"name"`
	Slug         string       `gorm:"index" json:"slug"`
	Description  string       `gorm:"type:text" json:"description"`
	BannerURL    string       `gorm:"type:text" json:"banner_url"`
	Kind         CampaignKind `gorm:"type:varchar(20);not null;default:'permanent'" json:"kind"`
	StartTime    *time.Time   `json:"start_time,omitempty"` // required iff Kind == limited
	EndTime      *time.Time   `json:"end_time,omitempty"`
	IsActive     bool         `gorm:"default:true" json:"is_active"`
	DisplayOrder int          `gorm:"default:0" json:"display_order"`
	ChatRoomID   string       `json:"chat_room_id,omitempty"` // default chat room for the campaign

	Timestamps
}

// Activity groups related tasks inside a campaign. Child of exactly one campaign.
type Activity struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	CampaignID  string `gorm:"index;not null" json:"campaign_id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Icon        string `gorm:"size:50" json:"icon"` // emoji or icon name
	OrderIndex  int    `gorm:"default:0" json:"order_index"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
