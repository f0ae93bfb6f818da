package services

import "errors"

// Claim/redemption failures are part of the service contract: every one of
// these is expected under normal operation and must reach the caller as a
// distinct kind, never as a bare 500.
var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrTaskInactive   = errors.New("task is not active")
	ErrStockExhausted = errors.New("task completion limit reached")
	ErrAlreadyClaimed = errors.New("task already claimed")

	ErrPrizeNotFound    = errors.New("prize not found")
	ErrPrizeUnavailable = errors.New("prize is not available")
	ErrOutOfStock       = errors.New("prize out of stock")
	ErrKeyPoolExhausted = errors.New("no available keys in pool")

	ErrInsufficientPoints = errors.New("insufficient points")

	ErrKeyNotFound = errors.New("key not found")
	ErrKeyInUse    = errors.New("cannot delete used key")

	ErrClaimNotFound      = errors.New("claim not found")
	ErrClaimNotPending    = errors.New("claim is not pending")
	ErrRedemptionNotFound = errors.New("redemption not found")
	ErrRedemptionFinal    = errors.New("redemption already finalized")
)
