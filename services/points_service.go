package services

import (
	"errors"
	"fmt"
	"log"
	"math"

	"incentive-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate applies a row lock on dialects that support it. SQLite (used by the
// test suite) rejects FOR UPDATE; its single-writer transactions already
// serialize the lock-then-check-then-write sequence.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Level curve: points needed to go from level n to n+1
const basePointsPerLevel = 100

func pointsForNextLevel(currentLevel int) int {
	if currentLevel < 1 {
		currentLevel = 1
	}
	// L_n = floor(basePointsPerLevel * n^1.2)
	return int(float64(basePointsPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// levelForPoints derives the level from lifetime earned points
func levelForPoints(total int) int {
	level := 1
	remaining := total
	for remaining >= pointsForNextLevel(level) {
		remaining -= pointsForNextLevel(level)
		level++
	}
	return level
}

type PointsService struct {
	DB *gorm.DB
}

func NewPointsService(db *gorm.DB) *PointsService {
	return &PointsService{DB: db}
}

// Balance is the read model for a points account
type Balance struct {
	UserID    string `json:"user_id"`
	OrgID     string `json:"org_id"`
	Total     int    `json:"total_points"`
	Spent     int    `json:"spent_points"`
	Available int    `json:"available_points"`
	Level     int    `json:"level"`
}

// GetBalance returns the account state; an absent account reads as all-zero
// (the row materializes lazily on first credit).
func (s *PointsService) GetBalance(userID, orgID string) (*Balance, error) {
	var acct models.UserPoints
	err := s.DB.Where("user_id = ? AND org_id = ?", userID, orgID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Balance{UserID: userID, OrgID: orgID, Level: 1}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Balance{
		UserID:    userID,
		OrgID:     orgID,
		Total:     acct.TotalPoints,
		Spent:     acct.SpentPoints,
		Available: acct.Available(),
		Level:     acct.Level,
	}, nil
}

// creditTx adds earned points inside the caller's transaction. The account row
// is locked so concurrent credits/debits against it serialize. Idempotency is
// the caller's job: one credit per approved claim.
func (s *PointsService) creditTx(tx *gorm.DB, userID, orgID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	var acct models.UserPoints
	err := forUpdate(tx).Where("user_id = ? AND org_id = ?", userID, orgID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		acct = models.UserPoints{
			ID:          uuid.NewString(),
			UserID:      userID,
			OrgID:       orgID,
			TotalPoints: amount,
			Level:       levelForPoints(amount),
		}
		return tx.Create(&acct).Error
	}
	if err != nil {
		return err
	}

	acct.TotalPoints += amount
	oldLevel := acct.Level
	acct.Level = levelForPoints(acct.TotalPoints)
	if acct.Level > oldLevel {
		log.Printf("⭐ [POINTS] user=%s org=%s leveled up %d → %d (total=%d)",
			userID, orgID, oldLevel, acct.Level, acct.TotalPoints)
	}
	return tx.Save(&acct).Error
}

// debitTx spends points inside the caller's transaction. Fails with
// ErrInsufficientPoints unless available >= amount; the account is left
// untouched on failure.
func (s *PointsService) debitTx(tx *gorm.DB, userID, orgID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	var acct models.UserPoints
	err := forUpdate(tx).Where("user_id = ? AND org_id = ?", userID, orgID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInsufficientPoints
	}
	if err != nil {
		return err
	}

	if acct.Available() < amount {
		return ErrInsufficientPoints
	}
	acct.SpentPoints += amount
	return tx.Save(&acct).Error
}

// refundTx reverses a debit (redemption cancelled before fulfillment).
// Spent is reduced rather than total increased so lifetime earnings and the
// derived level stay intact.
func (s *PointsService) refundTx(tx *gorm.DB, userID, orgID string, amount int) error {
	var acct models.UserPoints
	err := forUpdate(tx).Where("user_id = ? AND org_id = ?", userID, orgID).First(&acct).Error
	if err != nil {
		return err
	}
	acct.SpentPoints -= amount
	if acct.SpentPoints < 0 {
		return fmt.Errorf("refund of %d would drive spent_points negative for user=%s org=%s", amount, userID, orgID)
	}
	return tx.Save(&acct).Error
}

// LeaderboardEntry pairs a balance with mirrored profile data for display
type LeaderboardEntry struct {
	UserID      string  `json:"user_id"`
	Username    *string `json:"username,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	TotalPoints int     `json:"total_points"`
	Available   int     `json:"available_points"`
	Level       int     `json:"level"`
}

// GetLeaderboard returns the top accounts of an org by lifetime points,
// joined with the member mirror for usernames.
func (s *PointsService) GetLeaderboard(orgID string, limit int) ([]LeaderboardEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var entries []LeaderboardEntry
	err := s.DB.Raw(`
		SELECT up.user_id,
		       mm.username,
		       mm.avatar_url,
		       up.total_points,
		       up.total_points - up.spent_points AS available,
		       up.level
		FROM user_points up
		LEFT JOIN member_mirrors mm
		  ON mm.external_user_id = up.user_id AND mm.deleted_at IS NULL
		WHERE up.org_id = ?
		ORDER BY up.total_points DESC, up.user_id
		LIMIT ?
	`, orgID, limit).Scan(&entries).Error
	return entries, err
}
