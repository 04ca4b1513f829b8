package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"moc-service/internal/config"
	"moc-service/internal/dispatcher"
	"moc-service/internal/events"
	"moc-service/internal/handlers"
	"moc-service/internal/jobs"
	"moc-service/internal/middleware"
	"moc-service/internal/models"
	"moc-service/internal/repository"
	"moc-service/internal/seeders"
	"moc-service/internal/services"
)

// @title Management of Change API
// @version 1.0.0
// @description Approval workflow service for engineering and operational change requests

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8105
// @BasePath /api/v1

// @securityDefinitions.bearer BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.AutoMigrate(
		&models.Division{},
		&models.Department{},
		&models.Section{},
		&models.Category{},
		&models.Subcategory{},
		&models.Unit{},
		&models.ApprovalLevel{},
		&models.MocRequest{},
		&models.MocApprover{},
		&models.ActivityLog{},
		&models.ControlSequence{},
		&models.TaskItem{},
		&models.Notification{},
	); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	// Seed defaults
	if err := seeders.SeedApprovalLevels(db); err != nil {
		logger.Fatalf("Failed to seed approval levels: %v", err)
	}
	if err := seeders.SeedLookups(db); err != nil {
		logger.Warnf("Failed to seed lookups: %v", err)
	}

	// Initialize repositories
	requestRepo := repository.NewRequestRepository(db)
	lookupRepo := repository.NewLookupRepository(db)

	// The dispatcher turns workflow events into task and notification rows.
	// With NATS configured it consumes the workflow stream; without it the
	// engine feeds it directly in-process.
	eventDispatcher := dispatcher.NewDispatcher(requestRepo, logger)

	var emitter events.Emitter = eventDispatcher
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Warnf("Failed to initialize event publisher: %v. Falling back to in-process dispatch.", err)
		} else {
			emitter = publisher
			if _, err := eventDispatcher.Subscribe(publisher.Conn()); err != nil {
				logger.Fatalf("Failed to subscribe dispatcher to workflow stream: %v", err)
			}
			logger.Info("Event publisher initialized")
		}
	} else {
		logger.Info("NATS_URL not configured, dispatching events in-process")
	}

	// Initialize services
	workflowService := services.NewWorkflowService(requestRepo, emitter, services.WorkflowPolicy{
		RejectionPolicy:    cfg.RejectionPolicy,
		EmptyChainAdvances: cfg.EmptyChainAdvances,
		MaxTemporaryDays:   cfg.MaxTemporaryDays,
	})

	// Initialize handlers
	requestHandler := handlers.NewRequestHandler(workflowService)
	levelHandler := handlers.NewLevelHandler(lookupRepo)
	lookupHandler := handlers.NewLookupHandler(lookupRepo)
	taskHandler := handlers.NewTaskHandler(requestRepo)
	healthHandler := handlers.NewHealthHandler(db)

	// Start restoration job
	restorationJob := jobs.NewRestorationJob(requestRepo, emitter, logger, 0)
	restorationJob.Start()

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)

	// Protected API routes
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret))

	adminOnly := middleware.RequireRole(models.RoleAdmin)

	// Change request endpoints
	{
		api.POST("/requests", requestHandler.CreateDraft)
		api.GET("/requests", requestHandler.ListRequests)
		api.GET("/requests/pending", requestHandler.ListPending)
		api.GET("/requests/:id", requestHandler.GetRequest)
		api.PUT("/requests/:id", requestHandler.UpdateDraft)
		api.DELETE("/requests/:id", requestHandler.Cancel)
		api.POST("/requests/:id/submit", requestHandler.Submit)
		api.POST("/requests/:id/approvers/:slotId/complete", requestHandler.CompleteSlot)
		api.POST("/requests/:id/advance-stage", requestHandler.AdvanceStage)
		api.POST("/requests/:id/inactivate", requestHandler.MarkInactive)
		api.POST("/requests/:id/reactivate", requestHandler.Reactivate)
		api.POST("/requests/:id/close", requestHandler.Close)
		api.GET("/requests/:id/activity", requestHandler.GetActivity)
	}

	// Task and notification endpoints
	{
		api.GET("/tasks", taskHandler.ListTasks)
		api.POST("/tasks/:id/complete", taskHandler.CompleteTask)
		api.GET("/notifications", taskHandler.ListNotifications)
		api.POST("/notifications/:id/read", taskHandler.MarkRead)
		api.POST("/notifications/:id/dismiss", taskHandler.Dismiss)
	}

	// Approval level administration
	{
		api.GET("/approval-levels", levelHandler.ListLevels)
		api.POST("/approval-levels", adminOnly, levelHandler.CreateLevel)
		api.PUT("/approval-levels/:id", adminOnly, levelHandler.UpdateLevel)
		api.DELETE("/approval-levels/:id", adminOnly, levelHandler.DeleteLevel)
	}

	// Reference data
	lookupHandler.RegisterRoutes(api, adminOnly)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8105"
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infof("MOC service starting on port %s", port)
		if err := router.Run(":" + port); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	logger.Info("Shutting down server...")

	restorationJob.Stop()
	logger.Info("Restoration job stopped")

	if publisher != nil {
		publisher.Close()
	}

	logger.Info("Server shutdown complete")
}
