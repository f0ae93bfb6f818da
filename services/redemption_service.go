package services

import (
	"errors"
	"log"
	"time"

	"incentive-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RedemptionService validates and records prize redemptions: availability
// reservation, ledger debit and the redemption row commit or roll back as one.
type RedemptionService struct {
	DB     *gorm.DB
	Points *PointsService
	Keys   *KeyPoolService
}

func NewRedemptionService(db *gorm.DB, points *PointsService, keys *KeyPoolService) *RedemptionService {
	return &RedemptionService{DB: db, Points: points, Keys: keys}
}

// RedemptionResult carries the redemption plus the checked-out key, if any
type RedemptionResult struct {
	Redemption *models.PrizeRedemption
	Key        *models.PrizeKey
}

// RedeemPrize exchanges points for a prize. The prize row lock is taken first,
// so every redeemer of the same prize serializes: availability (key checkout
// or stock check), the debit and the redemption insert are one atomic unit.
// A key reserved before a failing balance check rolls back with the
// transaction and returns to the pool.
func (s *RedemptionService) RedeemPrize(prizeID, userID, shippingInfo string) (*RedemptionResult, error) {
	result := &RedemptionResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var prize models.Prize
		if err := forUpdate(tx).First(&prize, "id = ?", prizeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPrizeNotFound
			}
			return err
		}
		if !prize.IsActive {
			return ErrPrizeUnavailable
		}

		// Phase one of the key handoff: reserve a key before the redemption
		// row exists; the id is bound below, same transaction.
		var key *models.PrizeKey
		if prize.UseKeyPool {
			var err error
			key, err = s.Keys.checkoutOneTx(tx, prize.ID, userID)
			if err != nil {
				return err
			}
		} else if prize.Stock != nil && prize.ClaimedCount >= *prize.Stock {
			return ErrOutOfStock
		}

		if err := s.Points.debitTx(tx, userID, prize.OrgID, prize.PointsRequired); err != nil {
			return err
		}

		status := models.RedemptionStatusPending
		assignedKeyID := ""
		if key != nil {
			// Nothing to fulfill manually; the key is the delivery
			status = models.RedemptionStatusCompleted
			assignedKeyID = key.ID
		}
		redemption := &models.PrizeRedemption{
			ID:            uuid.NewString(),
			UserID:        userID,
			PrizeID:       prize.ID,
			PointsSpent:   prize.PointsRequired,
			Status:        status,
			ShippingInfo:  shippingInfo,
			AssignedKeyID: assignedKeyID,
		}
		if err := tx.Create(redemption).Error; err != nil {
			return err
		}

		if key != nil {
			if err := s.Keys.bindRedemptionTx(tx, key, redemption.ID); err != nil {
				return err
			}
		}

		prize.ClaimedCount++
		if err := tx.Save(&prize).Error; err != nil {
			return err
		}

		result.Redemption = redemption
		result.Key = key
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🎁 [REDEEM] user=%s prize=%s spent=%d status=%s key=%t",
		userID, prizeID, result.Redemption.PointsSpent, result.Redemption.Status, result.Key != nil)
	return result, nil
}

// CancelRedemption aborts a not-yet-fulfilled redemption and refunds the
// debit. Key-pool redemptions complete immediately and can't be cancelled.
func (s *RedemptionService) CancelRedemption(redemptionID string) (*models.PrizeRedemption, error) {
	var redemption models.PrizeRedemption
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&redemption, "id = ?", redemptionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRedemptionNotFound
			}
			return err
		}
		if redemption.Status != models.RedemptionStatusPending {
			return ErrRedemptionFinal
		}

		var prize models.Prize
		if err := forUpdate(tx).First(&prize, "id = ?", redemption.PrizeID).Error; err != nil {
			return err
		}

		redemption.Status = models.RedemptionStatusCancelled
		if err := tx.Save(&redemption).Error; err != nil {
			return err
		}
		if prize.ClaimedCount > 0 {
			prize.ClaimedCount--
			if err := tx.Save(&prize).Error; err != nil {
				return err
			}
		}
		return s.Points.refundTx(tx, redemption.UserID, prize.OrgID, redemption.PointsSpent)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("↩️ [REDEEM] cancelled redemption=%s, %d point(s) refunded", redemptionID, redemption.PointsSpent)
	return &redemption, nil
}

// CompleteRedemption marks a pending or shipped redemption fulfilled
func (s *RedemptionService) CompleteRedemption(redemptionID string) (*models.PrizeRedemption, error) {
	var redemption models.PrizeRedemption
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&redemption, "id = ?", redemptionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRedemptionNotFound
			}
			return err
		}
		switch redemption.Status {
		case models.RedemptionStatusPending, models.RedemptionStatusShipped:
		default:
			return ErrRedemptionFinal
		}
		now := time.Now()
		redemption.Status = models.RedemptionStatusCompleted
		redemption.DeliveredAt = &now
		return tx.Save(&redemption).Error
	})
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

// GetUserRedemptions returns a user's redemption history for an org,
// newest first.
func (s *RedemptionService) GetUserRedemptions(userID, orgID string) ([]models.PrizeRedemption, error) {
	var redemptions []models.PrizeRedemption
	err := s.DB.
		Joins("JOIN prizes ON prizes.id = prize_redemptions.prize_id").
		Where("prize_redemptions.user_id = ? AND prizes.org_id = ?", userID, orgID).
		Order("prize_redemptions.redeemed_at DESC").
		Find(&redemptions).Error
	return redemptions, err
}
