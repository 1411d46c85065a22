package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/contractvault/backend/config"
	"github.com/contractvault/backend/handler"
	"github.com/contractvault/backend/middleware"
	"github.com/contractvault/backend/pkg/logger"
	"github.com/contractvault/backend/service"
	"github.com/contractvault/backend/store"
	"github.com/contractvault/backend/ws"
)

func main() {
	// Load .env if present, then the config file (which expands env vars)
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Storage
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := store.Connect(ctx, &cfg.Mongo)
	cancel()
	if err != nil {
		slog.Error("failed to connect to mongodb", "error", err)
		os.Exit(1)
	}
	if err := db.EnsureIndexes(context.Background()); err != nil {
		slog.Error("failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO service", "error", err)
		os.Exit(1)
	}
	if err := minioSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure MINIO bucket", "error", err)
		os.Exit(1)
	}

	// Stores and domain services
	contracts := db.Contracts()
	media := db.Media()
	users := db.Users()
	history := db.History()

	engine := service.NewSearchEngine(contracts, media)
	extractor := service.NewExtractor()
	summarizer := service.NewSummarizer(&cfg.Gemini)
	searcher := service.NewStreamSearcher(engine, extractor, summarizer, history, users)
	hub := ws.NewHub()

	// Handlers
	authHandler := handler.NewAuthHandler(users, cfg)
	contractHandler := handler.NewContractHandler(contracts, media, users, history, engine, hub)
	bookmarkHandler := handler.NewBookmarkHandler(users, contracts, engine)
	archiveHandler := handler.NewArchiveHandler(users, contracts, media, engine, hub)
	mediaHandler := handler.NewMediaHandler(media, contracts, minioSvc)
	historyHandler := handler.NewHistoryHandler(history)
	userHandler := handler.NewUserHandler(users)
	webhookHandler := handler.NewWebhookHandler(hub)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"clients":   hub.Count(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Streaming search; anonymous connections allowed
	router.GET("/ws", middleware.OptionalAuthMiddleware(&cfg.Auth), ws.Handler(hub, searcher))

	api := router.Group("/api/v1")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		// reads work anonymously; an attached identity records history
		public := api.Group("/", middleware.OptionalAuthMiddleware(&cfg.Auth))
		{
			public.GET("/contracts", contractHandler.List)
			public.GET("/contracts/search", contractHandler.Search)
			public.GET("/contracts/:id", contractHandler.Get)
			public.GET("/media", mediaHandler.List)
			public.GET("/media/zip/:contractId", mediaHandler.DownloadZip)
			public.GET("/media/:id", mediaHandler.Get)
		}

		protected := api.Group("/", middleware.AuthMiddleware(&cfg.Auth))
		{
			protected.GET("/auth/me", authHandler.GetCurrentUser)

			protected.POST("/contracts", contractHandler.Create)
			protected.PUT("/contracts/:id", contractHandler.Update)

			protected.POST("/media/upload", mediaHandler.Upload)
			protected.POST("/media/upload-multiple", mediaHandler.UploadMultiple)
			protected.DELETE("/media/:id", mediaHandler.Delete)

			protected.GET("/bookmarks", bookmarkHandler.List)
			protected.POST("/bookmarks/:contractId", bookmarkHandler.Add)
			protected.DELETE("/bookmarks/:contractId", bookmarkHandler.Remove)
			protected.DELETE("/bookmarks", bookmarkHandler.Clear)

			protected.GET("/archive", archiveHandler.ListPersonal)
			protected.POST("/archive/:contractId", archiveHandler.AddPersonal)
			protected.DELETE("/archive/:contractId", archiveHandler.RemovePersonal)
			protected.DELETE("/archive", archiveHandler.ClearPersonal)

			protected.GET("/history", historyHandler.List)
			protected.DELETE("/history/:id", historyHandler.Delete)
			protected.DELETE("/history", historyHandler.Clear)
		}

		admin := api.Group("/admin", middleware.AuthMiddleware(&cfg.Auth), middleware.RequireAdmin())
		{
			admin.DELETE("/contracts/:id", contractHandler.Delete)

			admin.GET("/archive", archiveHandler.ListGlobal)
			admin.POST("/archive/:contractId", archiveHandler.ArchiveGlobal)
			admin.DELETE("/archive/:contractId", archiveHandler.RestoreGlobal)
			admin.DELETE("/archive", archiveHandler.EmptyGlobal)

			admin.GET("/users", userHandler.List)
			admin.GET("/users/stats", userHandler.Stats)
			admin.GET("/users/:id", userHandler.Get)
			admin.PUT("/users/:id/role", userHandler.UpdateRole)
			admin.DELETE("/users/:id", userHandler.Delete)

			admin.POST("/broadcast", webhookHandler.Broadcast)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if err := db.Close(shutdownCtx); err != nil {
		slog.Error("failed to close mongodb connection", "error", err)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
