// workers/member_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"incentive-system/models"
	"incentive-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// memberFromProfile matches the JSON response of the profile service.
type memberFromProfile struct {
	ExternalID  string    `json:"external_id"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"display_name,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type getMemberChangesResponse struct {
	Members []memberFromProfile `json:"members"`
}

// MemberSyncWorker keeps the local MemberMirror table in step with the
// profile service so leaderboards can show names without a remote call per
// request. Display data only; never an identity source.
type MemberSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g. "http://localhost:8500"
	endpointPath string // e.g. "/api/v1/public/members"
	serviceToken string
}

func NewMemberSyncWorker(db *gorm.DB, baseURL, endpointPath, serviceToken string) *MemberSyncWorker {
	return &MemberSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
	}
}

func (w *MemberSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Member Sync Worker (profile service → member_mirrors)…")
	go w.run(ctx)
}

func (w *MemberSyncWorker) run(ctx context.Context) {
	// Initial backfill from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial member sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.getLastSyncTime()); err != nil {
				log.Printf("❌ Member sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Member Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt in the local mirror.
func (w *MemberSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM member_mirrors WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches member changes since the given time and upserts them.
func (w *MemberSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	finalURL := fmt.Sprintf("%s%s?since=%s", w.baseURL, w.endpointPath, since.UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := utils.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to profile service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("profile service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response getMemberChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode profile service response: %w", err)
	}

	if len(response.Members) == 0 {
		return nil
	}

	var upsertCount, errorCount int
	for _, remote := range response.Members {
		mirror := models.MemberMirror{
			ID:             uuid.NewString(),
			ExternalUserID: remote.ExternalID,
			Username:       remote.Username,
			DisplayName:    remote.DisplayName,
			AvatarURL:      remote.AvatarURL,
			CreatedAt:      remote.CreatedAt,
			UpdatedAt:      remote.UpdatedAt,
		}

		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "display_name", "avatar_url", "updated_at",
			}),
		}).Create(&mirror).Error; err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to upsert member_mirror (external_id=%q): %v", remote.ExternalID, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[SYNC] ✅ Synced %d member(s) (%d upserted, %d errors)", len(response.Members), upsertCount, errorCount)
	return nil
}
