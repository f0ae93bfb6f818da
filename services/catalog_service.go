// services/catalog_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"incentive-system/models"
	"incentive-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// CatalogService owns the campaign → activity → task hierarchy and the prize
// definitions: create, partial update, soft delete and the org-facing
// listings. It never mutates counters or balances; those belong to the claim
// and redemption services.
type CatalogService struct {
	DB   *gorm.DB
	Keys *KeyPoolService
}

func NewCatalogService(db *gorm.DB, keys *KeyPoolService) *CatalogService {
	return &CatalogService{DB: db, Keys: keys}
}

// --- Campaigns ---

// CreateCampaign creates a campaign for an org (Admin only)
func (s *CatalogService) CreateCampaign(c *fiber.Ctx) error {
	orgID := c.Params("org_id")

	var req struct {
		Name         string              `json:"name" validate:"required"`
		Description  string              `json:"description"`
		BannerURL    string              `json:"banner_url"`
		Kind         models.CampaignKind `json:"kind" validate:"omitempty,oneof=permanent limited"`
		StartTime    *time.Time          `json:"start_time"`
		EndTime      *time.Time          `json:"end_time"`
		DisplayOrder int                 `json:"display_order"`
		ChatRoomID   string              `json:"chat_room_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}
	if req.Kind == "" {
		req.Kind = models.CampaignKindPermanent
	}
	if req.Kind == models.CampaignKindLimited && (req.StartTime == nil || req.EndTime == nil) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Limited campaigns require start_time and end_time"})
	}

	campaign := &models.Campaign{
		ID:           uuid.NewString(),
		OrgID:        orgID,
		Name:         req.Name,
		Slug:         slug.Make(req.Name),
		Description:  req.Description,
		BannerURL:    req.BannerURL,
		Kind:         req.Kind,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		IsActive:     true,
		DisplayOrder: req.DisplayOrder,
		ChatRoomID:   req.ChatRoomID,
	}
	if err := s.DB.Create(campaign).Error; err != nil {
		log.Printf("DB Error creating campaign: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create campaign"})
	}
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// UpdateCampaign applies a partial update (Admin only)
func (s *CatalogService) UpdateCampaign(c *fiber.Ctx) error {
	id := c.Params("id")

	var campaign models.Campaign
	if err := s.DB.First(&campaign, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Campaign not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name         *string              `json:"name"`
		Description  *string              `json:"description"`
		BannerURL    *string              `json:"banner_url"`
		Kind         *models.CampaignKind `json:"kind"`
		StartTime    *time.Time           `json:"start_time"`
		EndTime      *time.Time           `json:"end_time"`
		IsActive     *bool                `json:"is_active"`
		DisplayOrder *int                 `json:"display_order"`
		ChatRoomID   *string              `json:"chat_room_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name != nil {
		campaign.Name = *req.Name
		campaign.Slug = slug.Make(*req.Name)
	}
	if req.Description != nil {
		campaign.Description = *req.Description
	}
	if req.BannerURL != nil {
		campaign.BannerURL = *req.BannerURL
	}
	if req.Kind != nil {
		campaign.Kind = *req.Kind
	}
	if req.StartTime != nil {
		campaign.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		campaign.EndTime = req.EndTime
	}
	if req.IsActive != nil {
		campaign.IsActive = *req.IsActive
	}
	if req.DisplayOrder != nil {
		campaign.DisplayOrder = *req.DisplayOrder
	}
	if req.ChatRoomID != nil {
		campaign.ChatRoomID = *req.ChatRoomID
	}
	if campaign.Kind == models.CampaignKindLimited && (campaign.StartTime == nil || campaign.EndTime == nil) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Limited campaigns require start_time and end_time"})
	}

	if err := s.DB.Save(&campaign).Error; err != nil {
		log.Printf("DB Error updating campaign: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update campaign"})
	}
	return c.JSON(campaign)
}

// DeleteCampaign soft-deletes a campaign. Children stay queryable by id but
// drop out of the org listings.
func (s *CatalogService) DeleteCampaign(c *fiber.Ctx) error {
	return s.softDelete(c, &models.Campaign{}, "Campaign")
}

// --- Activities ---

// CreateActivity creates an activity under a campaign (Admin only)
func (s *CatalogService) CreateActivity(c *fiber.Ctx) error {
	campaignID := c.Params("id")

	var campaign models.Campaign
	if err := s.DB.First(&campaign, "id = ?", campaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Campaign not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
		OrderIndex  int    `json:"order_index"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}

	activity := &models.Activity{
		ID:          uuid.NewString(),
		CampaignID:  campaign.ID,
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		OrderIndex:  req.OrderIndex,
		IsActive:    true,
	}
	if err := s.DB.Create(activity).Error; err != nil {
		log.Printf("DB Error creating activity: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create activity"})
	}
	return c.Status(fiber.StatusCreated).JSON(activity)
}

// UpdateActivity applies a partial update (Admin only)
func (s *CatalogService) UpdateActivity(c *fiber.Ctx) error {
	id := c.Params("id")

	var activity models.Activity
	if err := s.DB.First(&activity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Activity not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Icon        *string `json:"icon"`
		OrderIndex  *int    `json:"order_index"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name != nil {
		activity.Name = *req.Name
	}
	if req.Description != nil {
		activity.Description = *req.Description
	}
	if req.Icon != nil {
		activity.Icon = *req.Icon
	}
	if req.OrderIndex != nil {
		activity.OrderIndex = *req.OrderIndex
	}
	if req.IsActive != nil {
		activity.IsActive = *req.IsActive
	}

	if err := s.DB.Save(&activity).Error; err != nil {
		log.Printf("DB Error updating activity: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update activity"})
	}
	return c.JSON(activity)
}

// DeleteActivity soft-deletes an activity (Admin only)
func (s *CatalogService) DeleteActivity(c *fiber.Ctx) error {
	return s.softDelete(c, &models.Activity{}, "Activity")
}

// --- Tasks ---

// CreateTask creates a task under an activity (Admin only)
func (s *CatalogService) CreateTask(c *fiber.Ctx) error {
	activityID := c.Params("id")

	var activity models.Activity
	if err := s.DB.First(&activity, "id = ?", activityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Activity not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Title              string            `json:"title" validate:"required"`
		Description        string            `json:"description"`
		Points             int               `json:"points" validate:"min=0"`
		TaskType           string            `json:"task_type"`
		Recurrence         models.Recurrence `json:"recurrence" validate:"omitempty,oneof=once daily weekly"`
		VerificationConfig string            `json:"verification_config"`
		StockLimit         *int              `json:"stock_limit"`
		OrderIndex         int               `json:"order_index"`
		ChatRoomID         string            `json:"chat_room_id"`
		ChatRequired       bool              `json:"chat_required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title is required"})
	}
	if req.Points < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Points must not be negative"})
	}
	if req.StockLimit != nil && *req.StockLimit < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Stock limit must be at least 1"})
	}
	if req.TaskType == "" {
		req.TaskType = "manual"
	}
	if req.Recurrence == "" {
		req.Recurrence = models.RecurrenceOnce
	}

	task := &models.Task{
		ID:                 uuid.NewString(),
		ActivityID:         activity.ID,
		Title:              req.Title,
		Description:        req.Description,
		Points:             req.Points,
		TaskType:           req.TaskType,
		Recurrence:         req.Recurrence,
		VerificationConfig: req.VerificationConfig,
		StockLimit:         req.StockLimit,
		IsActive:           true,
		OrderIndex:         req.OrderIndex,
		ChatRoomID:         req.ChatRoomID,
		ChatRequired:       req.ChatRequired,
	}
	if err := s.DB.Create(task).Error; err != nil {
		log.Printf("DB Error creating task: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create task"})
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// UpdateTask applies a partial update (Admin only). claimed_count is never
// writable here — it belongs to the claim engine.
func (s *CatalogService) UpdateTask(c *fiber.Ctx) error {
	id := c.Params("id")

	var task models.Task
	if err := s.DB.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Title              *string            `json:"title"`
		Description        *string            `json:"description"`
		Points             *int               `json:"points"`
		TaskType           *string            `json:"task_type"`
		Recurrence         *models.Recurrence `json:"recurrence"`
		VerificationConfig *string            `json:"verification_config"`
		StockLimit         *int               `json:"stock_limit"`
		IsActive           *bool              `json:"is_active"`
		OrderIndex         *int               `json:"order_index"`
		ChatRoomID         *string            `json:"chat_room_id"`
		ChatRequired       *bool              `json:"chat_required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Points != nil {
		if *req.Points < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Points must not be negative"})
		}
		task.Points = *req.Points
	}
	if req.TaskType != nil {
		task.TaskType = *req.TaskType
	}
	if req.Recurrence != nil {
		task.Recurrence = *req.Recurrence
	}
	if req.VerificationConfig != nil {
		task.VerificationConfig = *req.VerificationConfig
	}
	if req.StockLimit != nil {
		task.StockLimit = req.StockLimit
	}
	if req.IsActive != nil {
		task.IsActive = *req.IsActive
	}
	if req.OrderIndex != nil {
		task.OrderIndex = *req.OrderIndex
	}
	if req.ChatRoomID != nil {
		task.ChatRoomID = *req.ChatRoomID
	}
	if req.ChatRequired != nil {
		task.ChatRequired = *req.ChatRequired
	}

	// claimed_count belongs to the claim engine; a stale admin snapshot must
	// never write it back
	if err := s.DB.Omit("claimed_count").Save(&task).Error; err != nil {
		log.Printf("DB Error updating task: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update task"})
	}
	return c.JSON(task)
}

// DeleteTask soft-deletes a task (Admin only)
func (s *CatalogService) DeleteTask(c *fiber.Ctx) error {
	return s.softDelete(c, &models.Task{}, "Task")
}

// --- Prizes ---

// CreatePrize creates a prize for an org (Admin only)
func (s *CatalogService) CreatePrize(c *fiber.Ctx) error {
	orgID := c.Params("org_id")

	var req struct {
		Name           string              `json:"name" validate:"required"`
		Description    string              `json:"description"`
		ImageURL       string              `json:"image_url"`
		PrizeType      string              `json:"prize_type"`
		PointsRequired int                 `json:"points_required" validate:"required,min=1"`
		Stock          *int                `json:"stock"`
		DeliveryType   models.DeliveryType `json:"delivery_type" validate:"omitempty,oneof=manual shipping code key_pool"`
		PrizeConfig    string              `json:"prize_config"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}
	if req.PointsRequired < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Points required must be positive"})
	}
	if req.PrizeType == "" {
		req.PrizeType = "digital"
	}
	if req.DeliveryType == "" {
		req.DeliveryType = models.DeliveryTypeManual
	}

	prize := &models.Prize{
		ID:             uuid.NewString(),
		OrgID:          orgID,
		Name:           req.Name,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		PrizeType:      req.PrizeType,
		PointsRequired: req.PointsRequired,
		Stock:          req.Stock,
		DeliveryType:   req.DeliveryType,
		PrizeConfig:    req.PrizeConfig,
		UseKeyPool:     req.DeliveryType == models.DeliveryTypeKeyPool,
		IsActive:       true,
	}
	if err := s.DB.Create(prize).Error; err != nil {
		log.Printf("DB Error creating prize: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create prize"})
	}
	return c.Status(fiber.StatusCreated).JSON(prize)
}

// UpdatePrize applies a partial update (Admin only)
func (s *CatalogService) UpdatePrize(c *fiber.Ctx) error {
	id := c.Params("id")

	var prize models.Prize
	if err := s.DB.First(&prize, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Prize not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name           *string              `json:"name"`
		Description    *string              `json:"description"`
		ImageURL       *string              `json:"image_url"`
		PrizeType      *string              `json:"prize_type"`
		PointsRequired *int                 `json:"points_required"`
		Stock          *int                 `json:"stock"`
		DeliveryType   *models.DeliveryType `json:"delivery_type"`
		PrizeConfig    *string              `json:"prize_config"`
		IsActive       *bool                `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name != nil {
		prize.Name = *req.Name
	}
	if req.Description != nil {
		prize.Description = *req.Description
	}
	if req.ImageURL != nil {
		prize.ImageURL = *req.ImageURL
	}
	if req.PrizeType != nil {
		prize.PrizeType = *req.PrizeType
	}
	if req.PointsRequired != nil {
		if *req.PointsRequired < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Points required must be positive"})
		}
		prize.PointsRequired = *req.PointsRequired
	}
	if req.Stock != nil {
		prize.Stock = req.Stock
	}
	if req.DeliveryType != nil {
		prize.DeliveryType = *req.DeliveryType
		prize.UseKeyPool = *req.DeliveryType == models.DeliveryTypeKeyPool
	}
	if req.PrizeConfig != nil {
		prize.PrizeConfig = *req.PrizeConfig
	}
	if req.IsActive != nil {
		prize.IsActive = *req.IsActive
	}

	// claimed_count moves only inside redemption transactions
	if err := s.DB.Omit("claimed_count").Save(&prize).Error; err != nil {
		log.Printf("DB Error updating prize: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update prize"})
	}
	return c.JSON(prize)
}

// DeletePrize soft-deletes a prize (Admin only)
func (s *CatalogService) DeletePrize(c *fiber.Ctx) error {
	return s.softDelete(c, &models.Prize{}, "Prize")
}

// softDelete flips is_active off for any catalog entity
func (s *CatalogService) softDelete(c *fiber.Ctx, model interface{}, label string) error {
	id := c.Params("id")

	result := s.DB.Model(model).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		log.Printf("DB Error deleting %s: %v", label, result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fmt.Sprintf("Failed to delete %s", label)})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": fmt.Sprintf("%s not found", label)})
	}
	return c.JSON(fiber.Map{"message": fmt.Sprintf("%s deleted successfully", label)})
}

// --- Org listings ---

type taskView struct {
	models.Task
	UserClaimed bool `json:"user_claimed"`
}

type activityView struct {
	models.Activity
	Tasks []taskView `json:"tasks"`
}

type campaignView struct {
	models.Campaign
	Activities []activityView `json:"activities"`
}

// GetOrgCampaigns returns the active campaign tree for an org, grouped into
// permanent and limited, ordered by (display_order, id). Pass user_id to mark
// tasks the user already completed.
func (s *CatalogService) GetOrgCampaigns(c *fiber.Ctx) error {
	orgID := c.Params("org_id")
	userID := c.Query("user_id")

	var campaigns []models.Campaign
	if err := s.DB.
		Where("org_id = ? AND is_active = ?", orgID, true).
		Order("display_order, id").
		Find(&campaigns).Error; err != nil {
		log.Printf("DB Error listing campaigns: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list campaigns"})
	}

	permanent := []campaignView{}
	limited := []campaignView{}
	for _, campaign := range campaigns {
		view, err := s.buildCampaignView(campaign, userID)
		if err != nil {
			log.Printf("DB Error building campaign tree %s: %v", campaign.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list campaigns"})
		}
		if campaign.Kind == models.CampaignKindPermanent {
			permanent = append(permanent, *view)
		} else {
			limited = append(limited, *view)
		}
	}

	return c.JSON(fiber.Map{"permanent": permanent, "limited": limited})
}

func (s *CatalogService) buildCampaignView(campaign models.Campaign, userID string) (*campaignView, error) {
	var activities []models.Activity
	if err := s.DB.
		Where("campaign_id = ? AND is_active = ?", campaign.ID, true).
		Order("order_index, id").
		Find(&activities).Error; err != nil {
		return nil, err
	}

	view := &campaignView{Campaign: campaign, Activities: []activityView{}}
	for _, activity := range activities {
		var tasks []models.Task
		if err := s.DB.
			Where("activity_id = ? AND is_active = ?", activity.ID, true).
			Order("order_index, id").
			Find(&tasks).Error; err != nil {
			return nil, err
		}

		av := activityView{Activity: activity, Tasks: []taskView{}}
		for _, task := range tasks {
			tv := taskView{Task: task}
			if userID != "" {
				var n int64
				if err := s.DB.Model(&models.TaskClaim{}).
					Where("task_id = ? AND user_id = ? AND status = ?", task.ID, userID, models.ClaimStatusApproved).
					Count(&n).Error; err != nil {
					return nil, err
				}
				tv.UserClaimed = n > 0
			}
			av.Tasks = append(av.Tasks, tv)
		}
		view.Activities = append(view.Activities, av)
	}
	return view, nil
}

// GetOrgActivities returns all active activities across an org's active
// campaigns (flat admin listing with campaign names).
func (s *CatalogService) GetOrgActivities(c *fiber.Ctx) error {
	orgID := c.Params("org_id")

	type activityRow struct {
		models.Activity
		CampaignName string `json:"campaign_name"`
	}
	var rows []activityRow
	if err := s.DB.Raw(`
		SELECT a.*, c.name AS campaign_name
		FROM activities a
		INNER JOIN campaigns c ON c.id = a.campaign_id
		WHERE c.org_id = ? AND c.is_active = ? AND a.is_active = ?
		ORDER BY a.order_index, a.id
	`, orgID, true, true).Scan(&rows).Error; err != nil {
		log.Printf("DB Error listing activities: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list activities"})
	}
	return c.JSON(rows)
}

// GetOrgTasks returns all active tasks across an org's active campaigns
// (flat admin listing with activity/campaign names).
func (s *CatalogService) GetOrgTasks(c *fiber.Ctx) error {
	orgID := c.Params("org_id")

	type taskRow struct {
		models.Task
		ActivityName string `json:"activity_name"`
		CampaignName string `json:"campaign_name"`
	}
	var rows []taskRow
	if err := s.DB.Raw(`
		SELECT t.*, a.name AS activity_name, c.name AS campaign_name
		FROM tasks t
		INNER JOIN activities a ON a.id = t.activity_id
		INNER JOIN campaigns c ON c.id = a.campaign_id
		WHERE c.org_id = ? AND c.is_active = ? AND a.is_active = ? AND t.is_active = ?
		ORDER BY t.order_index, t.id
	`, orgID, true, true, true).Scan(&rows).Error; err != nil {
		log.Printf("DB Error listing tasks: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list tasks"})
	}
	return c.JSON(rows)
}

type prizeView struct {
	models.Prize
	IsAvailable   bool  `json:"is_available"`
	AvailableKeys int64 `json:"available_keys"`
}

// GetOrgPrizes returns an org's active prizes with computed availability,
// cheapest first.
func (s *CatalogService) GetOrgPrizes(c *fiber.Ctx) error {
	orgID := c.Params("org_id")

	var prizes []models.Prize
	if err := s.DB.
		Where("org_id = ? AND is_active = ?", orgID, true).
		Order("points_required, id").
		Find(&prizes).Error; err != nil {
		log.Printf("DB Error listing prizes: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list prizes"})
	}

	views := []prizeView{}
	for _, prize := range prizes {
		view := prizeView{Prize: prize, IsAvailable: true}
		if prize.UseKeyPool {
			n, err := s.Keys.CountAvailable(prize.ID)
			if err != nil {
				log.Printf("DB Error counting keys for prize %s: %v", prize.ID, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list prizes"})
			}
			view.AvailableKeys = n
			view.IsAvailable = n > 0
		} else if prize.Stock != nil {
			view.IsAvailable = prize.ClaimedCount < *prize.Stock
		}
		views = append(views, view)
	}
	return c.JSON(views)
}

// --- Assets ---

// UploadAsset stores a campaign banner or prize image on R2 and returns the
// public CDN URL (Admin only).
func (s *CatalogService) UploadAsset(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	kind := c.FormValue("kind", "banner") // banner | prize
	key := fmt.Sprintf("incentive/%s/%s-%s", kind, uuid.NewString(), fileHeader.Filename)

	url, err := utils.UploadFileToR2(fileHeader, key)
	if err != nil {
		log.Printf("R2 upload failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload asset"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}
