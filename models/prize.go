package models

import "time"

// DeliveryType indicates how a redeemed prize reaches the user
type DeliveryType string

const (
	DeliveryTypeManual   DeliveryType = "manual"
	DeliveryTypeShipping DeliveryType = "shipping"
	DeliveryTypeCode     DeliveryType = "code"
	DeliveryTypeKeyPool  DeliveryType = "key_pool"
)

// RedemptionStatus is the fulfillment state of a redemption
type RedemptionStatus string

const (
	RedemptionStatusPending   RedemptionStatus = "pending"
	RedemptionStatusShipped   RedemptionStatus = "shipped"
	RedemptionStatusCompleted RedemptionStatus = "completed"
	RedemptionStatusCancelled RedemptionStatus = "cancelled"
)

// Prize is a reward redeemable for points.
// Stock is ignored when UseKeyPool is set; the key pool is the inventory then.
type Prize struct {
	ID             string       `gorm:"primaryKey;type:uuid" json:"id"`
	OrgID          string       `gorm:"index;not null" json:"org_id"`
	Name           string       `gorm:"not null" json:"name"`
	Description    string       `gorm:"type:text" json:"description"`
	ImageURL       string       `gorm:"type:text" json:"image_url"`
	PrizeType      string       `gorm:"size:50;default:'digital'" json:"prize_type"` // physical/digital/badge/voucher
	PointsRequired int          `gorm:"not null" json:"points_required"`
	Stock          *int         `json:"stock,omitempty"` // nil = unlimited
	ClaimedCount   int          `gorm:"default:0" json:"claimed_count"`
	DeliveryType   DeliveryType `gorm:"type:varchar(20);default:'manual'" json:"delivery_type"`
	PrizeConfig    string       `gorm:"type:jsonb" json:"prize_config,omitempty"`
	UseKeyPool     bool         `gorm:"default:false" json:"use_key_pool"`
	IsActive       bool         `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// PrizeKey is a single-use redemption code in a prize's key pool.
// Once IsUsed flips, the (key, redemption) pairing never changes.
type PrizeKey struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	PrizeID      string     `gorm:"not null;uniqueIndex:idx_prize_key_value" json:"prize_id"`
	KeyValue     string     `gorm:"size:500;not null;uniqueIndex:idx_prize_key_value" json:"key_value"`
	KeyType      string     `gorm:"size:50;default:'voucher'" json:"key_type"` // voucher/license/token
	IsUsed       bool       `gorm:"default:false;index" json:"is_used"`
	UsedByUserID string     `gorm:"index" json:"used_by_user_id,omitempty"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	RedemptionID string     `json:"redemption_id,omitempty"` // set iff used
	KeyMetadata  string     `gorm:"type:jsonb" json:"key_metadata,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// PrizeRedemption records a user exchanging points for a prize
type PrizeRedemption struct {
	ID            string           `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string           `gorm:"index;not null" json:"user_id"`
	PrizeID       string           `gorm:"index;not null" json:"prize_id"`
	PointsSpent   int              `gorm:"not null" json:"points_spent"`
	Status        RedemptionStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	ShippingInfo  string           `gorm:"type:jsonb" json:"shipping_info,omitempty"`
	AssignedKeyID string           `json:"assigned_key_id,omitempty"` // non-empty iff the prize used a key pool
	KeyRevealed   bool             `gorm:"default:false" json:"key_revealed"`
	RedeemedAt    time.Time        `json:"redeemed_at" gorm:"autoCreateTime"`
	DeliveredAt   *time.Time       `json:"delivered_at,omitempty"`
}
