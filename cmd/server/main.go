package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/medibro/medibro-server/internal/config"
	"github.com/medibro/medibro-server/internal/database"
	"github.com/medibro/medibro-server/internal/handlers"
	"github.com/medibro/medibro-server/internal/jobs"
	"github.com/medibro/medibro-server/internal/middleware"
	"github.com/medibro/medibro-server/internal/types"
	"go.uber.org/zap"
)

// @title MediBro API
// @version 1.0.0
// @description Medication adherence backend for the MediBro mobile app and dispenser
// @host localhost:5000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(compress.New())
	app.Use(cors.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("medibro")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Root banner for uptime probes and curious browsers
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "MediBro API Server is running",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"auth":      "/api/auth",
				"medicines": "/api/medicines",
				"logs":      "/api/logs",
				"analytics": "/api/analytics",
				"hardware":  "/api/hardware",
			},
		})
	})

	// API routes under /api
	api := app.Group("/api")

	authHandler := &handlers.AuthHandler{DB: db, Cfg: cfg}
	medicineHandler := &handlers.MedicineHandler{DB: db, Cfg: cfg}
	logHandler := &handlers.LogHandler{DB: db, Cfg: cfg}
	analyticsHandler := &handlers.AnalyticsHandler{DB: db, Cfg: cfg}
	hardwareHandler := &handlers.HardwareHandler{DB: db, Cfg: cfg, Logger: logger}

	protect := middleware.Protect(cfg.JWTSecret)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/profile", protect, authHandler.GetProfile)
	auth.Put("/profile", protect, authHandler.UpdateProfile)
	auth.Post("/complete-setup", protect, authHandler.CompleteSetup)

	// Medicine routes
	medicines := api.Group("/medicines", protect)
	medicines.Post("/", medicineHandler.CreateMedicine)
	medicines.Get("/", medicineHandler.ListMedicines)
	medicines.Get("/alerts/low-stock", medicineHandler.LowStock)
	medicines.Get("/:id", medicineHandler.GetMedicine)
	medicines.Put("/:id", medicineHandler.UpdateMedicine)
	medicines.Delete("/:id", medicineHandler.DeleteMedicine)

	// Dose log routes
	logs := api.Group("/logs", protect)
	logs.Get("/", logHandler.ListLogs)
	logs.Get("/today", logHandler.TodaySchedule)
	logs.Get("/pending", logHandler.PendingLogs)
	logs.Get("/history/:medicineId", logHandler.MedicineHistory)
	logs.Get("/:id", logHandler.GetLog)
	logs.Put("/:id/status", logHandler.UpdateStatus)

	// Analytics routes
	analytics := api.Group("/analytics", protect)
	analytics.Get("/adherence", analyticsHandler.Adherence)
	analytics.Get("/insights", analyticsHandler.Insights)
	analytics.Get("/patterns", analyticsHandler.Patterns)

	// Hardware routes: dispensers authenticate by registered bot id
	hardware := api.Group("/hardware")
	hardware.Get("/schedule", hardwareHandler.Schedule)
	hardware.Get("/slots", hardwareHandler.Slots)
	hardware.Post("/update-status", hardwareHandler.UpdateStatus)
	hardware.Post("/bulk-update", hardwareHandler.BulkUpdate)
	hardware.Post("/register", hardwareHandler.Register)
	hardware.Get("/health", hardwareHandler.Health)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success":   false,
			"message":   "Resource not found",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Missed-dose sweeper
	var sweeper *jobs.Sweeper
	if cfg.SweepEnabled {
		sweeper = jobs.NewSweeper(cfg, db, logger)
		if err := sweeper.Start(); err != nil {
			logger.Fatal("Failed to start sweeper", zap.Error(err))
		}
	}

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info("Gracefully shutting down...")
		if sweeper != nil {
			sweeper.Stop()
		}
		_ = app.Shutdown()
	}()

	logger.Info("Starting server", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Server error"

	if appErr, ok := types.AsAppError(err); ok {
		code = appErr.Status
		message = appErr.Message
	} else if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"success":   false,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	})
}
