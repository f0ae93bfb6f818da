// handlers/incentive_routes.go
package handlers

import (
	"errors"
	"strconv"

	"incentive-system/middleware"
	"incentive-system/services"

	"github.com/gofiber/fiber/v2"
)

// claimStatus maps claim failures to HTTP codes: missing entities are 404,
// races a concurrent writer won are 409, everything else the caller can act
// on is 400.
func claimStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrTaskNotFound), errors.Is(err, services.ErrClaimNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrAlreadyClaimed), errors.Is(err, services.ErrClaimNotPending):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrTaskInactive), errors.Is(err, services.ErrStockExhausted):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func redeemStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrPrizeNotFound), errors.Is(err, services.ErrRedemptionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrRedemptionFinal):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrPrizeUnavailable),
		errors.Is(err, services.ErrOutOfStock),
		errors.Is(err, services.ErrKeyPoolExhausted),
		errors.Is(err, services.ErrInsufficientPoints):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func SetupIncentiveRoutes(app *fiber.App, claims *services.ClaimService, redemptions *services.RedemptionService, points *services.PointsService) {
	// 🔓 Leaderboard is org-public (still behind gateway auth). Registered
	// before the secured group so it stays reachable without user context.
	app.Get("/:org_id/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		entries, err := points.GetLeaderboard(c.Params("org_id"), limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(entries)
	})

	// 🔐 Secured routes — require user context forwarded by the gateway
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/task/:id/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		taskID := c.Params("id")

		var req struct {
			SubmissionData string `json:"submission_data"`
		}
		// Body is optional: tasks without verification need no submission
		_ = c.BodyParser(&req)

		claim, err := claims.ClaimTask(taskID, userID, req.SubmissionData)
		if err != nil {
			return c.Status(claimStatus(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(claim)
	})

	secured.Post("/prize/:id/redeem", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		prizeID := c.Params("id")

		var req struct {
			ShippingInfo string `json:"shipping_info"`
		}
		_ = c.BodyParser(&req)

		result, err := redemptions.RedeemPrize(prizeID, userID, req.ShippingInfo)
		if err != nil {
			return c.Status(redeemStatus(err)).JSON(fiber.Map{"error": err.Error()})
		}

		resp := fiber.Map{
			"id":           result.Redemption.ID,
			"prize_id":     result.Redemption.PrizeID,
			"points_spent": result.Redemption.PointsSpent,
			"status":       result.Redemption.Status,
			"redeemed_at":  result.Redemption.RedeemedAt,
		}
		if result.Key != nil {
			resp["key_value"] = result.Key.KeyValue
			resp["key_type"] = result.Key.KeyType
			resp["key_metadata"] = result.Key.KeyMetadata
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	})

	secured.Get("/:org_id/points", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		balance, err := points.GetBalance(userID, c.Params("org_id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get balance",
				"cause": err.Error(),
			})
		}
		return c.JSON(balance)
	})

	secured.Get("/:org_id/redemptions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		history, err := redemptions.GetUserRedemptions(userID, c.Params("org_id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get redemptions",
				"cause": err.Error(),
			})
		}
		return c.JSON(history)
	})

	// Admin endpoints — claim review and redemption lifecycle
	adminGroup := app.Group("/admin", middleware.UserContextMiddleware())

	adminGroup.Post("/claim/:id/review", func(c *fiber.Ctx) error {
		reviewerID := c.Locals("user_id").(string)

		var req struct {
			Approve bool   `json:"approve"`
			Note    string `json:"note"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		var err error
		var claim interface{}
		if req.Approve {
			claim, err = claims.ApproveClaim(c.Params("id"), reviewerID, req.Note)
		} else {
			claim, err = claims.RejectClaim(c.Params("id"), reviewerID, req.Note)
		}
		if err != nil {
			return c.Status(claimStatus(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(claim)
	})

	adminGroup.Post("/redemption/:id/cancel", func(c *fiber.Ctx) error {
		redemption, err := redemptions.CancelRedemption(c.Params("id"))
		if err != nil {
			return c.Status(redeemStatus(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(redemption)
	})

	adminGroup.Post("/redemption/:id/complete", func(c *fiber.Ctx) error {
		redemption, err := redemptions.CompleteRedemption(c.Params("id"))
		if err != nil {
			return c.Status(redeemStatus(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(redemption)
	})
}
