package services

import (
	"testing"

	"incentive-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB returns an in-memory database migrated with the full schema.
// The pool is capped at one connection so concurrent transactions serialize
// the way Postgres row locks serialize them in production.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Campaign{},
		&models.Activity{},
		&models.Task{},
		&models.TaskClaim{},
		&models.UserPoints{},
		&models.Prize{},
		&models.PrizeKey{},
		&models.PrizeRedemption{},
		&models.MemberMirror{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// seedTask creates a campaign → activity → task chain for org "org-1" and
// returns the task.
func seedTask(t *testing.T, db *gorm.DB, points int, recurrence models.Recurrence, stockLimit *int) *models.Task {
	t.Helper()

	campaign := &models.Campaign{
		ID:       uuid.NewString(),
		OrgID:    "org-1",
		Name:     "Launch Campaign",
		Slug:     "launch-campaign",
		Kind:     models.CampaignKindPermanent,
		IsActive: true,
	}
	if err := db.Create(campaign).Error; err != nil {
		t.Fatalf("seed campaign: %v", err)
	}

	activity := &models.Activity{
		ID:         uuid.NewString(),
		CampaignID: campaign.ID,
		Name:       "Onboarding",
		IsActive:   true,
	}
	if err := db.Create(activity).Error; err != nil {
		t.Fatalf("seed activity: %v", err)
	}

	task := &models.Task{
		ID:         uuid.NewString(),
		ActivityID: activity.ID,
		Title:      "Join the community call",
		Points:     points,
		TaskType:   "manual",
		Recurrence: recurrence,
		StockLimit: stockLimit,
		IsActive:   true,
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task
}

func seedPrize(t *testing.T, db *gorm.DB, pointsRequired int, stock *int) *models.Prize {
	t.Helper()

	prize := &models.Prize{
		ID:             uuid.NewString(),
		OrgID:          "org-1",
		Name:           "Sticker Pack",
		PrizeType:      "physical",
		PointsRequired: pointsRequired,
		Stock:          stock,
		DeliveryType:   models.DeliveryTypeShipping,
		IsActive:       true,
	}
	if err := db.Create(prize).Error; err != nil {
		t.Fatalf("seed prize: %v", err)
	}
	return prize
}

// fund credits a user's org-1 account directly through the ledger
func fund(t *testing.T, db *gorm.DB, points *PointsService, userID string, amount int) {
	t.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		return points.creditTx(tx, userID, "org-1", amount)
	})
	if err != nil {
		t.Fatalf("fund %s with %d: %v", userID, amount, err)
	}
}

func intPtr(v int) *int { return &v }
