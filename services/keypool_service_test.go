package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"incentive-system/models"
)

func TestAddKeysIdempotentByValue(t *testing.T) {
	db := openTestDB(t)
	keys := NewKeyPoolService(db)
	prize := seedPrize(t, db, 10, nil)

	first, err := keys.AddKeys(prize.ID, []string{"A", "B", "C"}, "voucher", "")
	if err != nil {
		t.Fatalf("AddKeys: %v", err)
	}
	if first.Inserted != 3 || first.Skipped != 0 {
		t.Errorf("first import = %+v, want 3 inserted, 0 skipped", first)
	}

	// Overlapping re-import: only the new value lands
	second, err := keys.AddKeys(prize.ID, []string{"B", "C", "D"}, "voucher", "")
	if err != nil {
		t.Fatalf("AddKeys overlap: %v", err)
	}
	if second.Inserted != 1 || second.Skipped != 2 {
		t.Errorf("second import = %+v, want 1 inserted, 2 skipped", second)
	}

	n, _ := keys.CountAvailable(prize.ID)
	if n != 4 {
		t.Errorf("pool size = %d, want 4", n)
	}
}

func TestAddKeysDedupesWithinBatch(t *testing.T) {
	db := openTestDB(t)
	keys := NewKeyPoolService(db)
	prize := seedPrize(t, db, 10, nil)

	result, err := keys.AddKeys(prize.ID, []string{"X", "X", "", "Y"}, "", "")
	if err != nil {
		t.Fatalf("AddKeys: %v", err)
	}
	if result.Inserted != 2 {
		t.Errorf("inserted = %d, want 2 (duplicate and empty value dropped)", result.Inserted)
	}

	var stored []models.PrizeKey
	db.Where("prize_id = ?", prize.ID).Find(&stored)
	for _, k := range stored {
		if k.KeyType != "voucher" {
			t.Errorf("key %q type = %q, want default voucher", k.KeyValue, k.KeyType)
		}
	}
}

func TestAddKeysFlipsPrizeToKeyPool(t *testing.T) {
	db := openTestDB(t)
	keys := NewKeyPoolService(db)
	prize := seedPrize(t, db, 10, nil)
	if prize.UseKeyPool {
		t.Fatal("fixture prize should start without a pool")
	}

	if _, err := keys.AddKeys(prize.ID, []string{"A"}, "license", ""); err != nil {
		t.Fatalf("AddKeys: %v", err)
	}

	var fresh models.Prize
	db.First(&fresh, "id = ?", prize.ID)
	if !fresh.UseKeyPool || fresh.DeliveryType != models.DeliveryTypeKeyPool {
		t.Errorf("prize after import: use_key_pool=%t delivery=%s", fresh.UseKeyPool, fresh.DeliveryType)
	}
}

func TestAddKeysMissingPrize(t *testing.T) {
	db := openTestDB(t)
	keys := NewKeyPoolService(db)

	if _, err := keys.AddKeys("00000000-0000-0000-0000-000000000000", []string{"A"}, "", ""); !errors.Is(err, ErrPrizeNotFound) {
		t.Fatalf("AddKeys for missing prize = %v, want ErrPrizeNotFound", err)
	}
}

func TestSameKeyValueAllowedAcrossPrizes(t *testing.T) {
	db := openTestDB(t)
	keys := NewKeyPoolService(db)
	first := seedPrize(t, db, 10, nil)
	second := seedPrize(t, db, 10, nil)

	if _, err := keys.AddKeys(first.ID, []string{"SHARED"}, "", ""); err != nil {
		t.Fatalf("AddKeys first: %v", err)
	}
	result, err := keys.AddKeys(second.ID, []string{"SHARED"}, "", "")
	if err != nil {
		t.Fatalf("AddKeys second: %v", err)
	}
	if result.Inserted != 1 {
		t.Errorf("inserted = %d, uniqueness should be scoped per prize", result.Inserted)
	}
}

// Key imports racing redemptions must not write back a stale claimed_count.
func TestAddKeysKeepsClaimedCount(t *testing.T) {
	db := openTestDB(t)
	points := NewPointsService(db)
	keys := NewKeyPoolService(db)
	redemptions := NewRedemptionService(db, points, keys)
	prize := seedPrize(t, db, 10, nil)

	const redeemers = 4
	if _, err := keys.AddKeys(prize.ID, []string{"S0", "S1", "S2", "S3"}, "", ""); err != nil {
		t.Fatalf("AddKeys: %v", err)
	}
	for i := 0; i < redeemers; i++ {
		fund(t, db, points, fmt.Sprintf("user-%d", i), 10)
	}

	var wg sync.WaitGroup
	for i := 0; i < redeemers; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if _, err := redemptions.RedeemPrize(prize.ID, fmt.Sprintf("user-%d", i), ""); err != nil {
				t.Errorf("redeem user-%d: %v", i, err)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			if _, err := keys.AddKeys(prize.ID, []string{fmt.Sprintf("EXTRA-%d", i)}, "", ""); err != nil {
				t.Errorf("import batch %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	var fresh models.Prize
	db.First(&fresh, "id = ?", prize.ID)
	if fresh.ClaimedCount != redeemers {
		t.Errorf("claimed_count = %d after %d redemptions with concurrent imports, want %d",
			fresh.ClaimedCount, redeemers, redeemers)
	}
}

func TestListKeysFiltersUsed(t *testing.T) {
	db := openTestDB(t)
	points := NewPointsService(db)
	keys := NewKeyPoolService(db)
	redemptions := NewRedemptionService(db, points, keys)
	prize := seedPrize(t, db, 10, nil)

	if _, err := keys.AddKeys(prize.ID, []string{"A", "B"}, "", ""); err != nil {
		t.Fatalf("AddKeys: %v", err)
	}
	fund(t, db, points, "alice", 10)
	if _, err := redemptions.RedeemPrize(prize.ID, "alice", ""); err != nil {
		t.Fatalf("RedeemPrize: %v", err)
	}

	unused, err := keys.ListKeys(prize.ID, false)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if unused.Total != 1 || unused.Available != 1 || unused.Used != 0 {
		t.Errorf("unused listing = %+v", unused)
	}

	all, err := keys.ListKeys(prize.ID, true)
	if err != nil {
		t.Fatalf("ListKeys all: %v", err)
	}
	if all.Total != 2 || all.Used != 1 || all.Available != 1 {
		t.Errorf("full listing = %+v", all)
	}
}

func TestDeleteKeyRefusesUsed(t *testing.T) {
	db := openTestDB(t)
	points := NewPointsService(db)
	keys := NewKeyPoolService(db)
	redemptions := NewRedemptionService(db, points, keys)
	prize := seedPrize(t, db, 10, nil)

	if _, err := keys.AddKeys(prize.ID, []string{"A"}, "", ""); err != nil {
		t.Fatalf("AddKeys: %v", err)
	}
	fund(t, db, points, "alice", 10)
	result, err := redemptions.RedeemPrize(prize.ID, "alice", "")
	if err != nil {
		t.Fatalf("RedeemPrize: %v", err)
	}

	if err := keys.DeleteKey(result.Key.ID); !errors.Is(err, ErrKeyInUse) {
		t.Fatalf("DeleteKey of used key = %v, want ErrKeyInUse", err)
	}
	if err := keys.DeleteKey("00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("DeleteKey of missing key = %v, want ErrKeyNotFound", err)
	}

	// An unused key can be pulled from the pool
	if _, err := keys.AddKeys(prize.ID, []string{"B"}, "", ""); err != nil {
		t.Fatalf("AddKeys: %v", err)
	}
	var unused models.PrizeKey
	if err := db.First(&unused, "prize_id = ? AND is_used = ?", prize.ID, false).Error; err != nil {
		t.Fatalf("find unused: %v", err)
	}
	if err := keys.DeleteKey(unused.ID); err != nil {
		t.Fatalf("DeleteKey of unused key: %v", err)
	}
	n, _ := keys.CountAvailable(prize.ID)
	if n != 0 {
		t.Errorf("available = %d after delete, want 0", n)
	}
}
