// services/scheduler.go
package services

import (
	"log"
	"time"

	"incentive-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartCampaignScheduler runs the limited-campaign expiry sweep every minute
// for the process lifetime.
func (s *CatalogService) StartCampaignScheduler() {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[Scheduler] ❌ Failed to create scheduler: %v", err)
		return
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(s.ExpireLimitedCampaigns),
	); err != nil {
		log.Printf("[Scheduler] ❌ Failed to register campaign expiry job: %v", err)
		return
	}
	sched.Start()
}

// ExpireLimitedCampaigns deactivates limited campaigns whose window has closed.
func (s *CatalogService) ExpireLimitedCampaigns() {
	var campaigns []models.Campaign
	now := time.Now()
	err := s.DB.Where("kind = ? AND is_active = ? AND end_time <= ?",
		models.CampaignKindLimited, true, now).
		Find(&campaigns).Error
	if err != nil {
		log.Printf("[Scheduler] DB error: %v", err)
		return
	}

	for _, campaign := range campaigns {
		campaign.IsActive = false
		if err := s.DB.Save(&campaign).Error; err != nil {
			log.Printf("[Scheduler] Failed to expire campaign %s: %v", campaign.ID, err)
		} else {
			log.Printf("⏰ Auto-expired limited campaign: %s", campaign.Name)
		}
	}
}
