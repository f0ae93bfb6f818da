// handlers/catalog_routes.go
package handlers

import (
	"errors"

	"incentive-system/middleware"
	"incentive-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCatalogRoutes(app *fiber.App, catalog *services.CatalogService, keys *services.KeyPoolService) {
	// 🔓 Public listings — no user context, but still behind gateway auth
	app.Get("/:org_id/campaigns", catalog.GetOrgCampaigns)
	app.Get("/:org_id/prizes", catalog.GetOrgPrizes)

	// 🔐 Admin routes — require user context from the gateway
	admin := app.Group("/admin", middleware.UserContextMiddleware())

	admin.Post("/:org_id/campaigns", catalog.CreateCampaign)
	admin.Put("/campaign/:id", catalog.UpdateCampaign)
	admin.Patch("/campaign/:id", catalog.UpdateCampaign)
	admin.Delete("/campaign/:id", catalog.DeleteCampaign)

	admin.Get("/:org_id/activities", catalog.GetOrgActivities)
	admin.Post("/campaign/:id/activities", catalog.CreateActivity)
	admin.Put("/activity/:id", catalog.UpdateActivity)
	admin.Patch("/activity/:id", catalog.UpdateActivity)
	admin.Delete("/activity/:id", catalog.DeleteActivity)

	admin.Get("/:org_id/tasks", catalog.GetOrgTasks)
	admin.Post("/activity/:id/tasks", catalog.CreateTask)
	admin.Put("/task/:id", catalog.UpdateTask)
	admin.Patch("/task/:id", catalog.UpdateTask)
	admin.Delete("/task/:id", catalog.DeleteTask)

	admin.Post("/:org_id/prizes", catalog.CreatePrize)
	admin.Put("/prize/:id", catalog.UpdatePrize)
	admin.Patch("/prize/:id", catalog.UpdatePrize)
	admin.Delete("/prize/:id", catalog.DeletePrize)

	admin.Post("/assets", catalog.UploadAsset)

	// Key pool management
	admin.Post("/prize/:id/keys", func(c *fiber.Ctx) error {
		var req struct {
			Keys        []string `json:"keys" validate:"required"`
			KeyType     string   `json:"key_type"`
			KeyMetadata string   `json:"key_metadata"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if len(req.Keys) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "keys must not be empty"})
		}

		result, err := keys.AddKeys(c.Params("id"), req.Keys, req.KeyType, req.KeyMetadata)
		if err != nil {
			if errors.Is(err, services.ErrPrizeNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to add keys", "cause": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	admin.Get("/prize/:id/keys", func(c *fiber.Ctx) error {
		includeUsed := c.Query("show_used", "true") != "false"
		listing, err := keys.ListKeys(c.Params("id"), includeUsed)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list keys", "cause": err.Error()})
		}
		return c.JSON(listing)
	})

	admin.Delete("/prize-key/:id", func(c *fiber.Ctx) error {
		if err := keys.DeleteKey(c.Params("id")); err != nil {
			switch {
			case errors.Is(err, services.ErrKeyNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrKeyInUse):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete key", "cause": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"message": "Key deleted successfully"})
	})
}
