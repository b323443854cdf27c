package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cleversamer/chatting-app/internal/config"
	"github.com/cleversamer/chatting-app/internal/handler"
	"github.com/cleversamer/chatting-app/internal/middleware"
	"github.com/cleversamer/chatting-app/internal/repository"
	"github.com/cleversamer/chatting-app/internal/service"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)

	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	repos := repository.NewRepositories(dbPool, rdb, appLogger)

	files, err := service.NewLocalFileStore(cfg.Storage.UploadsDir, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize file store", "error", err)
	}
	sched := service.NewScheduler(appLogger)
	notif := service.NewLogNotifier(appLogger)
	hub := handler.NewHub(appLogger)

	services := service.NewServices(repos, files, sched, notif, hub, cfg, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, cfg.RateLimit, appLogger)

	handlers := handler.NewHandlers(services, hub, files, cfg, appLogger)

	router := setupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Check)

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.RequireAuth())
	v1.Use(rateLimitMiddleware.Limit())
	{
		rooms := v1.Group("/rooms")
		{
			rooms.POST("", handlers.Room.Create)
			rooms.POST("/join", handlers.Room.Join)
			rooms.GET("/public", handlers.Room.ListPublic)
			rooms.GET("/search", handlers.Room.Search)
			rooms.GET("/:id", handlers.Room.GetByID)
			rooms.DELETE("/:id", handlers.Room.Delete)
			rooms.POST("/:id/reset", handlers.Room.Reset)
			rooms.POST("/:id/leave", handlers.Room.Leave)
			rooms.GET("/:id/members", handlers.Room.GetMembers)
			rooms.POST("/:id/block", handlers.Room.SetBlocked)
			rooms.POST("/:id/chat-disabled", handlers.Room.ToggleChatDisabled)
			rooms.POST("/:id/show-name", handlers.Room.ToggleShowName)

			rooms.GET("/:id/messages", handlers.Message.List)
			rooms.POST("/:id/messages", handlers.Message.Send)
			rooms.DELETE("/:id/messages", handlers.Room.DeleteMessages)
			rooms.DELETE("/:id/messages/:messageId", handlers.Message.Delete)
			rooms.POST("/:id/messages/:messageId/pin", handlers.Room.PinMessage)
			rooms.POST("/:id/messages/:messageId/vote", handlers.Message.Vote)

			assignments := rooms.Group("/:id/assignments")
			{
				assignments.POST("", handlers.Assignment.Create)
				assignments.GET("", handlers.Assignment.List)
				assignments.POST("/:assignmentId/extend", handlers.Assignment.ExtendExpiry)
				assignments.POST("/:assignmentId/submissions", handlers.Assignment.Submit)
				assignments.GET("/:assignmentId/submissions", handlers.Assignment.ListSubmissions)
				assignments.GET("/:assignmentId/submitted", handlers.Assignment.HasSubmitted)
				assignments.GET("/:assignmentId/bundle", handlers.Assignment.Bundle)
				assignments.DELETE("/:assignmentId", handlers.Assignment.Delete)
			}
		}

		v1.GET("/ws/rooms/:id", handlers.WebSocket.HandleRoom)
	}

	return router
}
