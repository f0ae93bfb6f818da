package services

import (
	"errors"
	"log"
	"time"

	"incentive-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KeyPoolService manages the single-use redemption keys backing key_pool prizes.
type KeyPoolService struct {
	DB *gorm.DB
}

func NewKeyPoolService(db *gorm.DB) *KeyPoolService {
	return &KeyPoolService{DB: db}
}

// AddKeysResult reports the outcome of a bulk import
type AddKeysResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// AddKeys bulk-imports key values for a prize. Import is idempotent by value:
// a value already present for the prize is skipped, not an error. Also flips
// the prize into key_pool delivery.
func (s *KeyPoolService) AddKeys(prizeID string, values []string, keyType, metadata string) (*AddKeysResult, error) {
	if keyType == "" {
		keyType = "voucher"
	}

	result := &AddKeysResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var prize models.Prize
		if err := forUpdate(tx).First(&prize, "id = ?", prizeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPrizeNotFound
			}
			return err
		}

		keys := make([]models.PrizeKey, 0, len(values))
		seen := make(map[string]bool, len(values))
		for _, v := range values {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			keys = append(keys, models.PrizeKey{
				ID:          uuid.NewString(),
				PrizeID:     prizeID,
				KeyValue:    v,
				KeyType:     keyType,
				KeyMetadata: metadata,
			})
		}

		if len(keys) > 0 {
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "prize_id"}, {Name: "key_value"}},
				DoNothing: true,
			}).Create(&keys)
			if res.Error != nil {
				return res.Error
			}
			result.Inserted = int(res.RowsAffected)
		}
		result.Skipped = len(values) - result.Inserted

		// Importing keys makes the pool the prize's inventory. Targeted update:
		// claimed_count moves only inside redemption transactions.
		if !prize.UseKeyPool || prize.DeliveryType != models.DeliveryTypeKeyPool {
			if err := tx.Model(&prize).Updates(map[string]interface{}{
				"use_key_pool":  true,
				"delivery_type": models.DeliveryTypeKeyPool,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🔑 [KEYPOOL] prize=%s imported %d key(s), %d duplicate(s) skipped",
		prizeID, result.Inserted, result.Skipped)
	return result, nil
}

// checkoutOneTx reserves exactly one unused key for userID inside the caller's
// transaction. The caller must already hold the prize row lock, which
// serializes concurrent redeemers of the same prize. The redemption id is
// bound afterwards via bindRedemptionTx, inside the same transaction.
func (s *KeyPoolService) checkoutOneTx(tx *gorm.DB, prizeID, userID string) (*models.PrizeKey, error) {
	var key models.PrizeKey
	err := forUpdate(tx).
		Where("prize_id = ? AND is_used = ?", prizeID, false).
		Order("created_at, id").
		First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrKeyPoolExhausted
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	key.IsUsed = true
	key.UsedByUserID = userID
	key.UsedAt = &now
	if err := tx.Save(&key).Error; err != nil {
		return nil, err
	}
	return &key, nil
}

// bindRedemptionTx attaches the redemption id to a key reserved earlier in the
// same transaction.
func (s *KeyPoolService) bindRedemptionTx(tx *gorm.DB, key *models.PrizeKey, redemptionID string) error {
	key.RedemptionID = redemptionID
	return tx.Model(&models.PrizeKey{}).
		Where("id = ?", key.ID).
		Update("redemption_id", redemptionID).Error
}

// KeyListing is the read model for a prize's pool
type KeyListing struct {
	Total     int               `json:"total"`
	Used      int               `json:"used"`
	Available int               `json:"available"`
	Keys      []models.PrizeKey `json:"keys"`
}

// ListKeys returns the pool newest-first, optionally hiding used keys
func (s *KeyPoolService) ListKeys(prizeID string, includeUsed bool) (*KeyListing, error) {
	query := s.DB.Where("prize_id = ?", prizeID)
	if !includeUsed {
		query = query.Where("is_used = ?", false)
	}

	var keys []models.PrizeKey
	if err := query.Order("created_at DESC").Find(&keys).Error; err != nil {
		return nil, err
	}

	listing := &KeyListing{Total: len(keys), Keys: keys}
	for _, k := range keys {
		if k.IsUsed {
			listing.Used++
		}
	}
	listing.Available = listing.Total - listing.Used
	return listing, nil
}

// CountAvailable returns the number of unused keys for a prize
func (s *KeyPoolService) CountAvailable(prizeID string) (int64, error) {
	var n int64
	err := s.DB.Model(&models.PrizeKey{}).
		Where("prize_id = ? AND is_used = ?", prizeID, false).
		Count(&n).Error
	return n, err
}

// DeleteKey permanently removes an unused key. Used keys are part of a
// redemption record and can never be deleted.
func (s *KeyPoolService) DeleteKey(keyID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var key models.PrizeKey
		if err := forUpdate(tx).First(&key, "id = ?", keyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrKeyNotFound
			}
			return err
		}
		if key.IsUsed {
			return ErrKeyInUse
		}
		return tx.Delete(&key).Error
	})
}
