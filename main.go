package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"incentive-system/handlers"
	"incentive-system/middleware"
	"incentive-system/models"
	"incentive-system/services"
	"incentive-system/utils"
	"incentive-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // key imports and banner uploads stay small
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

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
		log.Fatal("failed to migrate database:", err)
	}

	pointsService := services.NewPointsService(db)
	keyPoolService := services.NewKeyPoolService(db)
	catalogService := services.NewCatalogService(db, keyPoolService)
	claimService := services.NewClaimService(db, pointsService)
	redemptionService := services.NewRedemptionService(db, pointsService, keyPoolService)

	profileServiceURL := os.Getenv("PROFILE_SERVICE_URL")
	serviceToken := os.Getenv("INCENTIVE_SERVICE_TOKEN")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if profileServiceURL != "" {
		memberSync := workers.NewMemberSyncWorker(db, profileServiceURL, "/api/v1/public/members", serviceToken)
		memberSync.Start(ctx)
	} else {
		log.Println("⚠️  PROFILE_SERVICE_URL not set — member mirror sync disabled, leaderboard shows ids only")
	}

	catalogService.StartCampaignScheduler()

	handlers.SetupCatalogRoutes(app, catalogService, keyPoolService)
	handlers.SetupIncentiveRoutes(app, claimService, redemptionService, pointsService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Incentive service running on http://localhost:5300")
	log.Println("✅ Campaign expiry scheduler running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
}
