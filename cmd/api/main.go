package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"procureflow/back-office/back-office-backend/internal/auth"
	"procureflow/back-office/back-office-backend/internal/catalog"
	"procureflow/back-office/back-office-backend/internal/config"
	"procureflow/back-office/back-office-backend/internal/directory"
	"procureflow/back-office/back-office-backend/internal/notifications"
	"procureflow/back-office/back-office-backend/internal/notifications/websocket"
	"procureflow/back-office/back-office-backend/internal/numbering"
	"procureflow/back-office/back-office-backend/internal/purchaserequest"
	"procureflow/back-office/back-office-backend/internal/sla"
	"procureflow/back-office/back-office-backend/internal/storerequisition"
	"procureflow/back-office/back-office-backend/internal/workflow"
)

func main() {
	// .env is optional, real deployments use the environment directly
	godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Logging)
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to access database pool", zap.Error(err))
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	if err := db.AutoMigrate(
		&auth.User{},
		&directory.Department{},
		&directory.DepartmentMember{},
		&catalog.Workflow{},
		&numbering.RunningNumber{},
		&purchaserequest.PurchaseRequest{},
		&purchaserequest.PurchaseRequestItem{},
		&storerequisition.StoreRequisition{},
		&storerequisition.StoreRequisitionItem{},
		&notifications.Notification{},
	); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Shared infrastructure
	events := make(chan workflow.TransitionCommitted, cfg.Notifications.EventBufferSize)
	wsManager := websocket.NewManager(logger)

	catalogService := catalog.NewService(catalog.NewRepository(db))
	directoryRepo := directory.NewRepository(db)
	numberGen := numbering.NewGenerator(db)

	notificationService := notifications.NewService(db, wsManager, logger)
	dispatcher := notifications.NewDispatcher(notificationService, events, logger)

	authService := auth.NewService(db, cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	authHandler := auth.NewHandler(authService)

	// Purchase requests
	prRepo := purchaserequest.NewRepository(db)
	prCoordinator := workflow.NewCoordinator(catalogService, directoryRepo, prRepo, numberGen, events, logger)
	prService := purchaserequest.NewService(prRepo, prCoordinator, catalogService, logger)
	prHandler := purchaserequest.NewHandler(prService)

	// Store requisitions
	srRepo := storerequisition.NewRepository(db)
	srCoordinator := workflow.NewCoordinator(catalogService, directoryRepo, srRepo, numberGen, events, logger)
	srService := storerequisition.NewService(srRepo, srCoordinator, catalogService, logger)
	srHandler := storerequisition.NewHandler(srService)

	catalogHandler := catalog.NewHandler(catalogService)
	notificationHandler := notifications.NewHandler(notificationService, wsManager)

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	go dispatcher.Run(dispatcherCtx)

	sweeper := sla.NewSweeper(
		[]sla.Source{
			sla.PurchaseRequestSource{Repo: prRepo},
			sla.StoreRequisitionSource{Repo: srRepo},
		},
		catalogService, notificationService, logger,
	)
	if cfg.SLA.Enabled {
		if err := sweeper.Start(); err != nil {
			logger.Fatal("Failed to start SLA sweeper", zap.Error(err))
		}
	}

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	auth.RegisterRoutes(router, authHandler)

	api := router.Group("/api/v1", auth.Middleware(authService))
	{
		catalogHandler.RegisterRoutes(api)
		prHandler.RegisterRoutes(api)
		srHandler.RegisterRoutes(api)
		notificationHandler.RegisterRoutes(api)
	}

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()
	logger.Info("Server started", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	if cfg.SLA.Enabled {
		sweeper.Stop()
	}
	stopDispatcher()
	wsManager.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func newLogger(cfg config.LoggingConfig) *zap.Logger {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.Level); err == nil {
		zcfg.Level = level
	}
	logger, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
