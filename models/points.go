package models

import "time"

// UserPoints is the per-(user, org) points account (denormalized for fast reads).
// Invariant: SpentPoints <= TotalPoints at all times; both move only inside the
// transaction of the claim/redemption that caused them.
type UserPoints struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string `gorm:"not null;uniqueIndex:idx_user_points_user_org" json:"user_id"`
	OrgID       string `gorm:"not null;uniqueIndex:idx_user_points_user_org" json:"org_id"`
	TotalPoints int    `gorm:"default:0" json:"total_points"`
	SpentPoints int    `gorm:"default:0" json:"spent_points"`
	Level       int    `gorm:"default:1" json:"level"`

	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Available is the spendable balance
func (p *UserPoints) Available() int {
	return p.TotalPoints - p.SpentPoints
}
