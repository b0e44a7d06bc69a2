package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm-messaging-server/internal/analytics"
	"crm-messaging-server/internal/config"
	"crm-messaging-server/internal/db"
	"crm-messaging-server/internal/gateway"
	"crm-messaging-server/internal/handlers"
	"crm-messaging-server/internal/metrics"
	"crm-messaging-server/internal/models"
	"crm-messaging-server/internal/notify"
	"crm-messaging-server/internal/services"
	"crm-messaging-server/pkg/logger"
	"crm-messaging-server/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const version = "1.0.0"

// SetupServer initializes and returns a configured HTTP server
func SetupServer(cfg *config.Config) (*http.Server, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	if cfg.Server.Port <= 0 {
		return nil, errors.New("invalid server port")
	}

	// Initialize database
	database, err := db.NewDatabase(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Seed database if enabled
	if cfg.Seed.Enable {
		if err := database.SeedDatabase(cfg.Seed.AdminPassword); err != nil {
			return nil, fmt.Errorf("failed to seed database: %w", err)
		}
	}

	// Initialize repositories
	messageRepo := db.NewMessageRepository(database.GetDB())
	conversationRepo := db.NewConversationRepository(database.GetDB())
	userRepo := db.NewUserRepository(database.GetDB())
	templateRepo := db.NewTemplateRepository(database.GetDB())

	// Metrics sink
	var sink metrics.Sink = metrics.NewNoopSink()
	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		sink = metrics.NewPrometheusSink(registry)
	}

	// Delivery analytics (optional)
	var recorder analytics.StatusRecorder
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		recorder = analytics.NewRedisSink(client)
	}

	// Fan-out hub injected into the delivery service
	hub := notify.NewHub(16)

	// Vendor gateway client
	vendorClient := gateway.NewClient(cfg.Vendor.BaseURL, cfg.Vendor.APIKey, cfg.Vendor.Timeout)

	// Initialize services
	userService := services.NewUserService(userRepo, cfg.Security.EncryptionKey)
	templateService := services.NewTemplateService(templateRepo)
	messageService := services.NewMessageService(messageRepo, conversationRepo, vendorClient, cfg.Vendor.Sender, sink)
	deliveryService := services.NewDeliveryService(messageRepo, hub, sink, recorder)

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestSizeLimitMiddleware(1 << 20))
	router.Use(middleware.AuditLogMiddleware())

	setupRoutes(router, cfg, registry, userService, templateService, messageService, deliveryService, hub)

	// Create server with security timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

// setupRoutes configures all the HTTP routes
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	registry *prometheus.Registry,
	userService *services.UserService,
	templateService *services.TemplateService,
	messageService *services.MessageService,
	deliveryService *services.DeliveryService,
	hub *notify.Hub,
) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg, userService)
	userHandler := handlers.NewUserHandler(userService)
	messageHandler := handlers.NewMessageHandler(messageService, templateService)
	templateHandler := handlers.NewTemplateHandler(templateService)
	deliveryHandler := handlers.NewDeliveryHandler(deliveryService)
	streamHandler := handlers.NewStreamHandler(hub)

	// Basic health check endpoint (public)
	router.GET("/health", handleHealthCheck)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	// Vendor webhook endpoints (public; the vendor does not authenticate)
	webhooks := router.Group("/webhooks")
	{
		webhooks.GET("/delivery-report", deliveryHandler.HandleGet)
		webhooks.POST("/delivery-report", deliveryHandler.HandlePost)
	}

	// Auth endpoints (public)
	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/login", authHandler.Login)
	}

	// Protected routes group
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg))

	protected.POST("/messages", middleware.RequirePermission(models.PermMessagesSend), messageHandler.Send)
	protected.POST("/messages/bulk", middleware.RequirePermission(models.PermMessagesSend), messageHandler.SendBulk)

	protected.GET("/conversations", middleware.RequirePermission(models.PermMessagesRead), messageHandler.ListConversations)
	protected.GET("/conversations/:id/messages", middleware.RequirePermission(models.PermMessagesRead), messageHandler.ListMessages)
	protected.POST("/conversations/:id/read", middleware.RequirePermission(models.PermMessagesRead), messageHandler.MarkRead)
	protected.GET("/conversations/:id/events", middleware.RequirePermission(models.PermMessagesRead), streamHandler.Events)

	protected.GET("/templates", middleware.RequirePermission(models.PermMessagesRead), templateHandler.List)
	protected.GET("/templates/:id", middleware.RequirePermission(models.PermMessagesRead), templateHandler.Get)
	protected.POST("/templates", middleware.RequirePermission(models.PermTemplatesWrite), templateHandler.Create)
	protected.DELETE("/templates/:id", middleware.RequirePermission(models.PermTemplatesWrite), templateHandler.Delete)

	protected.POST("/users", middleware.RequirePermission(models.PermUsersManage), userHandler.Register)
	protected.GET("/users", middleware.RequirePermission(models.PermUsersManage), userHandler.List)
	protected.GET("/users/:id", middleware.IsSelfOrHasPermission(models.PermUsersManage), userHandler.Get)
	protected.PUT("/users/:id", middleware.RequirePermission(models.PermUsersManage), userHandler.Update)
	protected.DELETE("/users/:id", middleware.RequirePermission(models.PermUsersManage), userHandler.Delete)
	protected.POST("/users/:id/password", middleware.IsSelfOrHasPermission(models.PermUsersManage), userHandler.ChangePassword)
}

// handleHealthCheck handles the health check endpoint
func handleHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().UTC(),
		"version": version,
		"service": "crm-messaging-server",
	})
}

// StartServer starts the HTTP server and handles graceful shutdown
func StartServer(srv *http.Server) error {
	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a timeout context for shutdown
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}

// StartServerWithContext starts the HTTP server with a context for shutdown control
func StartServerWithContext(ctx context.Context, srv *http.Server) error {
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
