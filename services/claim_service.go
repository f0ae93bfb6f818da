package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"incentive-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClaimService validates and records task completions and is, together with
// RedemptionService, the only writer of ledger state.
type ClaimService struct {
	DB     *gorm.DB
	Points *PointsService

	// AutoApprove mirrors the current review policy: claims are approved (and
	// credited) in the same transaction that creates them. Flipping this off
	// leaves claims pending for ApproveClaim/RejectClaim.
	AutoApprove bool
}

func NewClaimService(db *gorm.DB, points *PointsService) *ClaimService {
	return &ClaimService{DB: db, Points: points, AutoApprove: true}
}

// ClaimTask records a user's completion of a task. All validation and all
// writes (claim row, claimed_count, ledger credit) happen inside one
// transaction under the task row lock.
func (s *ClaimService) ClaimTask(taskID, userID, submission string) (*models.TaskClaim, error) {
	var claim *models.TaskClaim
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := forUpdate(tx).First(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		if err := s.validateClaimable(tx, &task, userID); err != nil {
			return err
		}

		claim = &models.TaskClaim{
			ID:             uuid.NewString(),
			UserID:         userID,
			TaskID:         task.ID,
			Status:         models.ClaimStatusPending,
			SubmissionData: submission,
		}
		if err := tx.Create(claim).Error; err != nil {
			return err
		}

		if s.AutoApprove {
			return s.approveTx(tx, claim, &task, "", "auto-approved")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ [CLAIM] user=%s task=%s status=%s points=%d",
		userID, taskID, claim.Status, claim.PointsEarned)
	return claim, nil
}

// validateClaimable runs the ordered claim checks against a locked task row.
// daily/weekly recurrence deliberately allows resubmission; only once is
// restricted.
func (s *ClaimService) validateClaimable(tx *gorm.DB, task *models.Task, userID string) error {
	if !task.IsActive {
		return ErrTaskInactive
	}
	if task.StockLimit != nil && task.ClaimedCount >= *task.StockLimit {
		return ErrStockExhausted
	}
	if task.Recurrence == models.RecurrenceOnce {
		var prior int64
		if err := tx.Model(&models.TaskClaim{}).
			Where("task_id = ? AND user_id = ? AND status = ?", task.ID, userID, models.ClaimStatusApproved).
			Count(&prior).Error; err != nil {
			return err
		}
		if prior > 0 {
			return ErrAlreadyClaimed
		}
	}
	return nil
}

// approveTx performs the pending → approved transition: set points, bump the
// task counter, credit the ledger. Must run under the task row lock so the
// counter check and the increment are one unit.
func (s *ClaimService) approveTx(tx *gorm.DB, claim *models.TaskClaim, task *models.Task, reviewerID, note string) error {
	orgID, err := s.orgForTask(tx, task)
	if err != nil {
		return err
	}

	now := time.Now()
	claim.Status = models.ClaimStatusApproved
	claim.PointsEarned = task.Points
	claim.ReviewedAt = &now
	claim.ReviewerID = reviewerID
	claim.ReviewNote = note
	if err := tx.Save(claim).Error; err != nil {
		return err
	}

	task.ClaimedCount++
	if err := tx.Save(task).Error; err != nil {
		return err
	}

	if task.Points > 0 {
		return s.Points.creditTx(tx, claim.UserID, orgID, task.Points)
	}
	return nil
}

// orgForTask resolves the owning org through activity → campaign
func (s *ClaimService) orgForTask(tx *gorm.DB, task *models.Task) (string, error) {
	var activity models.Activity
	if err := tx.First(&activity, "id = ?", task.ActivityID).Error; err != nil {
		return "", fmt.Errorf("activity %s not found for task %s: %w", task.ActivityID, task.ID, err)
	}
	var campaign models.Campaign
	if err := tx.First(&campaign, "id = ?", activity.CampaignID).Error; err != nil {
		return "", fmt.Errorf("campaign %s not found for activity %s: %w", activity.CampaignID, activity.ID, err)
	}
	return campaign.OrgID, nil
}

// ApproveClaim finalizes a pending claim. The task is re-validated under its
// row lock: stock may have run out and once-claims may have been approved
// since submission.
func (s *ClaimService) ApproveClaim(claimID, reviewerID, note string) (*models.TaskClaim, error) {
	var claim models.TaskClaim
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&claim, "id = ?", claimID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClaimNotFound
			}
			return err
		}
		if claim.Status != models.ClaimStatusPending {
			return ErrClaimNotPending
		}

		var task models.Task
		if err := forUpdate(tx).First(&task, "id = ?", claim.TaskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}
		if err := s.validateClaimable(tx, &task, claim.UserID); err != nil {
			return err
		}
		return s.approveTx(tx, &claim, &task, reviewerID, note)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("👍 [CLAIM] approved claim=%s by reviewer=%s", claimID, reviewerID)
	return &claim, nil
}

// RejectClaim marks a pending claim rejected. No ledger movement happens:
// credits only ever accompany an approval.
func (s *ClaimService) RejectClaim(claimID, reviewerID, note string) (*models.TaskClaim, error) {
	var claim models.TaskClaim
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&claim, "id = ?", claimID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClaimNotFound
			}
			return err
		}
		if claim.Status != models.ClaimStatusPending {
			return ErrClaimNotPending
		}
		now := time.Now()
		claim.Status = models.ClaimStatusRejected
		claim.ReviewedAt = &now
		claim.ReviewerID = reviewerID
		claim.ReviewNote = note
		return tx.Save(&claim).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("👎 [CLAIM] rejected claim=%s by reviewer=%s", claimID, reviewerID)
	return &claim, nil
}

// HasApprovedClaim reports whether the user already has an approved claim for
// the task (used by the catalog listing to mark completed tasks).
func (s *ClaimService) HasApprovedClaim(taskID, userID string) (bool, error) {
	var n int64
	err := s.DB.Model(&models.TaskClaim{}).
		Where("task_id = ? AND user_id = ? AND status = ?", taskID, userID, models.ClaimStatusApproved).
		Count(&n).Error
	return n > 0, err
}
