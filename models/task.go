package models

import "time"

// Recurrence controls how often the same user may claim a task
type Recurrence string

const (
	RecurrenceOnce   Recurrence = "once"
	RecurrenceDaily  Recurrence = "daily"
	RecurrenceWeekly Recurrence = "weekly"
)

// ClaimStatus is the review state of a task claim
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusApproved ClaimStatus = "approved"
	ClaimStatusRejected ClaimStatus = "rejected"
)

// Task is an action a user can complete for points.
// ClaimedCount only moves forward, and only inside the same transaction that
// approves the corresponding TaskClaim.
type Task struct {
	ID                 string     `gorm:"primaryKey;type:uuid" json:"id"`
	ActivityID         string     `gorm:"index;not null" json:"activity_id"`
	Title              string     `gorm:"not null" json:"title"`
	Description        string     `gorm:"type:text" json:"description"`
	Points             int        `gorm:"not null;default:0" json:"points"`
	TaskType           string     `gorm:"size:50;default:'manual'" json:"task_type"` // manual/dev/content/social/chat
	Recurrence         Recurrence `gorm:"type:varchar(20);default:'once'" json:"recurrence"`
	VerificationConfig string     `gorm:"type:jsonb" json:"verification_config,omitempty"`
	StockLimit         *int       `json:"stock_limit,omitempty"` // nil = unlimited completions
	ClaimedCount       int        `gorm:"default:0" json:"claimed_count"`
	IsActive           bool       `gorm:"default:true" json:"is_active"`
	OrderIndex         int        `gorm:"default:0" json:"order_index"`
	ChatRoomID         string     `json:"chat_room_id,omitempty"`
	ChatRequired       bool       `gorm:"default:false" json:"chat_required"` // gate checked upstream, not enforced here

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TaskClaim records one completion attempt of a task by a user
type TaskClaim struct {
	ID             string      `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string      `gorm:"index;not null" json:"user_id"`
	TaskID         string      `gorm:"index;not null" json:"task_id"`
	Status         ClaimStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	PointsEarned   int         `gorm:"default:0" json:"points_earned"`
	SubmissionData string      `gorm:"type:jsonb" json:"submission_data,omitempty"`
	SubmittedAt    time.Time   `json:"submitted_at" gorm:"autoCreateTime"`
	ReviewedAt     *time.Time  `json:"reviewed_at,omitempty"`
	ReviewerID     string      `json:"reviewer_id,omitempty"`
	ReviewNote     string      `gorm:"type:text" json:"review_note,omitempty"`
}
