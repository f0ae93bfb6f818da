package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"incentive-system/models"
)

func newRedemptionFixture(t *testing.T) (*PointsService, *KeyPoolService, *RedemptionService, *models.Prize) {
	t.Helper()
	db := openTestDB(t)
	points := NewPointsService(db)
	keys := NewKeyPoolService(db)
	redemptions := NewRedemptionService(db, points, keys)
	prize := seedPrize(t, db, 50, nil)
	return points, keys, redemptions, prize
}

func TestRedeemPrizeDebitsAndRecords(t *testing.T) {
	points, _, redemptions, prize := newRedemptionFixture(t)
	db := redemptions.DB
	fund(t, db, points, "alice", 120)

	result, err := redemptions.RedeemPrize(prize.ID, "alice", `{"address":"1 Main St"}`)
	if err != nil {
		t.Fatalf("RedeemPrize: %v", err)
	}
	if result.Redemption.Status != models.RedemptionStatusPending {
		t.Errorf("status = %s, want pending for shipping delivery", result.Redemption.Status)
	}
	if result.Redemption.PointsSpent != 50 {
		t.Errorf("points_spent = %d, want 50", result.Redemption.PointsSpent)
	}
	if result.Key != nil {
		t.Error("non-pool prize returned a key")
	}

	bal, _ := points.GetBalance("alice", "org-1")
	if bal.Available != 70 || bal.Spent != 50 {
		t.Errorf("balance after redeem %+v, want available=70 spent=50", bal)
	}

	var fresh models.Prize
	db.First(&fresh, "id = ?", prize.ID)
	if fresh.ClaimedCount != 1 {
		t.Errorf("claimed_count = %d, want 1", fresh.ClaimedCount)
	}
}

func TestRedeemPrizeInsufficientPoints(t *testing.T) {
	points, _, redemptions, prize := newRedemptionFixture(t)
	fund(t, redemptions.DB, points, "alice", 49)

	_, err := redemptions.RedeemPrize(prize.ID, "alice", "")
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("RedeemPrize = %v, want ErrInsufficientPoints", err)
	}

	// Nothing written on the failed attempt
	var n int64
	redemptions.DB.Model(&models.PrizeRedemption{}).Count(&n)
	if n != 0 {
		t.Errorf("%d redemption rows after failed redeem, want 0", n)
	}
	bal, _ := points.GetBalance("alice", "org-1")
	if bal.Spent != 0 {
		t.Errorf("spent = %d after failed redeem, want 0", bal.Spent)
	}
}

func TestRedeemPrizeInactiveAndMissing(t *testing.T) {
	points, _, redemptions, prize := newRedemptionFixture(t)
	db := redemptions.DB
	fund(t, db, points, "alice", 100)

	db.Model(&models.Prize{}).Where("id = ?", prize.ID).Update("is_active", false)
	if _, err := redemptions.RedeemPrize(prize.ID, "alice", ""); !errors.Is(err, ErrPrizeUnavailable) {
		t.Errorf("inactive prize = %v, want ErrPrizeUnavailable", err)
	}
	if _, err := redemptions.RedeemPrize("00000000-0000-0000-0000-000000000000", "alice", ""); !errors.Is(err, ErrPrizeNotFound) {
		t.Errorf("missing prize = %v, want ErrPrizeNotFound", err)
	}
}

func TestRedeemPrizeStockExhaustion(t *testing.T) {
	db := openTestDB(t)
	points := NewPointsService(db)
	keys := NewKeyPoolService(db)
	redemptions := NewRedemptionService(db, points, keys)
	prize := seedPrize(t, db, 10, intPtr(2))

	fund(t, db, points, "alice", 100)
	fund(t, db, points, "bob", 100)
	fund(t, db, points, "carol", 100)

	if _, err := redemptions.RedeemPrize(prize.ID, "alice", ""); err != nil {
		t.Fatalf("redeem 1: %v", err)
	}
	if _, err := redemptions.RedeemPrize(prize.ID, "bob", ""); err != nil {
		t.Fatalf("redeem 2: %v", err)
	}
	if _, err := redemptions.RedeemPrize(prize.ID, "carol", ""); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("redeem past stock = %v, want ErrOutOfStock", err)
	}

	bal, _ := points.GetBalance("carol", "org-1")
	if bal.Spent != 0 {
		t.Errorf("carol debited %d despite out of stock", bal.Spent)
	}
}

func TestRedeemKeyPoolAssignsExclusiveKeys(t *testing.T) {
	points, keys, redemptions, prize := newRedemptionFixture(t)
	db := redemptions.DB

	const poolSize = 4
	const contenders = 6
	values := make([]string, poolSize)
	for i := range values {
		values[i] = fmt.Sprintf("GAME-KEY-%04d", i)
	}
	if _, err := keys.AddKeys(prize.ID, values, "license", ""); err != nil {
		t.Fatalf("AddKeys: %v", err)
	}

	for i := 0; i < contenders; i++ {
		fund(t, db, points, fmt.Sprintf("user-%d", i), 50)
	}

	var wg sync.WaitGroup
	results := make([]*RedemptionResult, contenders)
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = redemptions.RedeemPrize(prize.ID, fmt.Sprintf("user-%d", i), "")
		}(i)
	}
	wg.Wait()

	assigned := make(map[string]string) // key value → user
	var exhausted int
	for i, err := range errs {
		switch {
		case err == nil:
			key := results[i].Key
			if key == nil {
				t.Fatalf("user-%d redeemed a pool prize without a key", i)
			}
			if prior, dup := assigned[key.KeyValue]; dup {
				t.Fatalf("key %q handed to both %s and user-%d", key.KeyValue, prior, i)
			}
			assigned[key.KeyValue] = fmt.Sprintf("user-%d", i)
			if results[i].Redemption.Status != models.RedemptionStatusCompleted {
				t.Errorf("pool redemption status = %s, want completed", results[i].Redemption.Status)
			}
			if results[i].Redemption.AssignedKeyID != key.ID {
				t.Errorf("assigned_key_id mismatch for user-%d", i)
			}
		case errors.Is(err, ErrKeyPoolExhausted):
			exhausted++
		default:
			t.Fatalf("unexpected redeem error: %v", err)
		}
	}
	if len(assigned) != poolSize {
		t.Errorf("%d keys assigned, want %d", len(assigned), poolSize)
	}
	if exhausted != contenders-poolSize {
		t.Errorf("%d exhaustion errors, want %d", exhausted, contenders-poolSize)
	}

	// Every used key carries its redemption id; no key referenced twice
	var used []models.PrizeKey
	db.Where("prize_id = ? AND is_used = ?", prize.ID, true).Find(&used)
	seenRedemption := make(map[string]bool)
	for _, k := range used {
		if k.RedemptionID == "" {
			t.Errorf("used key %q has no redemption bound", k.KeyValue)
		}
		if seenRedemption[k.RedemptionID] {
			t.Errorf("redemption %s bound to two keys", k.RedemptionID)
		}
		seenRedemption[k.RedemptionID] = true
	}

	n, _ := keys.CountAvailable(prize.ID)
	if n != 0 {
		t.Errorf("%d keys still available, want 0", n)
	}
}

func TestRedeemKeyPoolRollsBackKeyOnFailedDebit(t *testing.T) {
	points, keys, redemptions, prize := newRedemptionFixture(t)
	db := redemptions.DB

	if _, err := keys.AddKeys(prize.ID, []string{"ONLY-KEY"}, "voucher", ""); err != nil {
		t.Fatalf("AddKeys: %v", err)
	}
	fund(t, db, points, "poor", 10) // prize costs 50

	if _, err := redemptions.RedeemPrize(prize.ID, "poor", ""); !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("RedeemPrize = %v, want ErrInsufficientPoints", err)
	}

	// The reserved key returned to the pool with the rollback
	n, err := keys.CountAvailable(prize.ID)
	if err != nil {
		t.Fatalf("CountAvailable: %v", err)
	}
	if n != 1 {
		t.Errorf("available keys = %d after rolled-back redeem, want 1", n)
	}

	fund(t, db, points, "rich", 50)
	result, err := redemptions.RedeemPrize(prize.ID, "rich", "")
	if err != nil {
		t.Fatalf("redeem after rollback: %v", err)
	}
	if result.Key.KeyValue != "ONLY-KEY" {
		t.Errorf("key value = %q, want ONLY-KEY", result.Key.KeyValue)
	}
}

func TestCancelRedemptionRefunds(t *testing.T) {
	points, _, redemptions, prize := newRedemptionFixture(t)
	db := redemptions.DB
	fund(t, db, points, "alice", 60)

	result, err := redemptions.RedeemPrize(prize.ID, "alice", "")
	if err != nil {
		t.Fatalf("RedeemPrize: %v", err)
	}

	cancelled, err := redemptions.CancelRedemption(result.Redemption.ID)
	if err != nil {
		t.Fatalf("CancelRedemption: %v", err)
	}
	if cancelled.Status != models.RedemptionStatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	bal, _ := points.GetBalance("alice", "org-1")
	if bal.Available != 60 || bal.Spent != 0 {
		t.Errorf("balance after cancel %+v, want available=60 spent=0", bal)
	}
	var fresh models.Prize
	db.First(&fresh, "id = ?", prize.ID)
	if fresh.ClaimedCount != 0 {
		t.Errorf("claimed_count = %d after cancel, want 0", fresh.ClaimedCount)
	}

	// Cancelling twice must not refund twice
	if _, err := redemptions.CancelRedemption(result.Redemption.ID); !errors.Is(err, ErrRedemptionFinal) {
		t.Errorf("second cancel = %v, want ErrRedemptionFinal", err)
	}
}

func TestCompleteRedemptionTransitions(t *testing.T) {
	points, _, redemptions, prize := newRedemptionFixture(t)
	db := redemptions.DB
	fund(t, db, points, "alice", 50)

	result, err := redemptions.RedeemPrize(prize.ID, "alice", "")
	if err != nil {
		t.Fatalf("RedeemPrize: %v", err)
	}

	completed, err := redemptions.CompleteRedemption(result.Redemption.ID)
	if err != nil {
		t.Fatalf("CompleteRedemption: %v", err)
	}
	if completed.Status != models.RedemptionStatusCompleted || completed.DeliveredAt == nil {
		t.Errorf("completed redemption = %+v", completed)
	}

	if _, err := redemptions.CancelRedemption(result.Redemption.ID); !errors.Is(err, ErrRedemptionFinal) {
		t.Errorf("cancel after completion = %v, want ErrRedemptionFinal", err)
	}
	if _, err := redemptions.CompleteRedemption(result.Redemption.ID); !errors.Is(err, ErrRedemptionFinal) {
		t.Errorf("double completion = %v, want ErrRedemptionFinal", err)
	}
	bal, _ := points.GetBalance("alice", "org-1")
	if bal.Spent != 50 {
		t.Errorf("spent = %d after completion, want 50", bal.Spent)
	}
}

func TestGetUserRedemptionsScopedToOrg(t *testing.T) {
	points, _, redemptions, prize := newRedemptionFixture(t)
	db := redemptions.DB
	fund(t, db, points, "alice", 100)

	if _, err := redemptions.RedeemPrize(prize.ID, "alice", ""); err != nil {
		t.Fatalf("RedeemPrize: %v", err)
	}

	history, err := redemptions.GetUserRedemptions("alice", "org-1")
	if err != nil {
		t.Fatalf("GetUserRedemptions: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("got %d redemptions, want 1", len(history))
	}

	other, err := redemptions.GetUserRedemptions("alice", "org-2")
	if err != nil {
		t.Fatalf("GetUserRedemptions other org: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("got %d redemptions for foreign org, want 0", len(other))
	}
}

// Full spend-and-earn cycle: claim a task, redeem a key-pool prize with the
// earned points, exhaust the pool.
func TestEarnThenRedeemKeyPoolEndToEnd(t *testing.T) {
	db := openTestDB(t)
	points := NewPointsService(db)
	keys := NewKeyPoolService(db)
	claims := NewClaimService(db, points)
	redemptions := NewRedemptionService(db, points, keys)

	task := seedTask(t, db, 50, models.RecurrenceOnce, intPtr(1))
	prize := seedPrize(t, db, 50, nil)
	if _, err := keys.AddKeys(prize.ID, []string{"K1"}, "voucher", ""); err != nil {
		t.Fatalf("AddKeys: %v", err)
	}

	if _, err := claims.ClaimTask(task.ID, "alice", ""); err != nil {
		t.Fatalf("ClaimTask: %v", err)
	}
	if _, err := claims.ClaimTask(task.ID, "bob", ""); !errors.Is(err, ErrStockExhausted) {
		t.Fatalf("bob claiming exhausted task = %v, want ErrStockExhausted", err)
	}

	result, err := redemptions.RedeemPrize(prize.ID, "alice", "")
	if err != nil {
		t.Fatalf("RedeemPrize: %v", err)
	}
	if result.Key == nil || result.Key.KeyValue != "K1" {
		t.Fatalf("expected key K1, got %+v", result.Key)
	}
	if result.Redemption.Status != models.RedemptionStatusCompleted {
		t.Errorf("status = %s, want completed", result.Redemption.Status)
	}

	bal, _ := points.GetBalance("alice", "org-1")
	if bal.Available != 0 || bal.Total != 50 || bal.Spent != 50 {
		t.Errorf("final balance %+v, want total=50 spent=50 available=0", bal)
	}

	// Pool is empty now; a funded second user hits exhaustion, not a debit
	fund(t, db, points, "bob", 50)
	if _, err := redemptions.RedeemPrize(prize.ID, "bob", ""); !errors.Is(err, ErrKeyPoolExhausted) {
		t.Fatalf("redeem from empty pool = %v, want ErrKeyPoolExhausted", err)
	}
	balBob, _ := points.GetBalance("bob", "org-1")
	if balBob.Spent != 0 {
		t.Errorf("bob debited %d despite empty pool", balBob.Spent)
	}
}
