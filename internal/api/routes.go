// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/acord-review/backend/internal/notify"
	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Simulator UploadService
	Journal   TransitionJournal
	Hub       *notify.Hub
	Logger    *log.Logger
	Version   string

	// Intake rate limit; zero disables it
	IntakeRatePerSecond float64
	IntakeRateBurst     int
}

// Handlers holds all handler instances
type Handlers struct {
	Health        HealthHandler
	Upload        UploadHandler
	Overview      OverviewHandler
	Notifications NotificationHandler

	intakeLimit echo.MiddlewareFunc
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	var feed NotificationFeed
	if deps.Hub != nil {
		feed = deps.Hub
	}
	hub := deps.Hub
	if hub == nil {
		hub = notify.NewHub(0, deps.Logger)
	}

	return &Handlers{
		Health:        NewHealthHandler(deps.Version, deps.Simulator),
		Upload:        NewUploadHandler(deps.Simulator, deps.Journal),
		Overview:      NewOverviewHandler(deps.Simulator, deps.Journal, feed),
		Notifications: NewNotificationHandler(hub, deps.Logger),
		intakeLimit:   IntakeRateLimit(deps.IntakeRatePerSecond, deps.IntakeRateBurst),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	api := e.Group("/api")

	// Health check
	api.GET("/health", handlers.Health.HandleHealth)

	// Upload routes
	uploadGroup := api.Group("/uploads")
	uploadGroup.POST("", handlers.Upload.HandleIntake, handlers.intakeLimit)
	uploadGroup.GET("", handlers.Upload.HandleListUploads)
	uploadGroup.GET("/msgpack", handlers.Upload.HandleListUploadsMsgpack)
	uploadGroup.GET("/:id", handlers.Upload.HandleGetUpload)
	uploadGroup.GET("/:id/history", handlers.Upload.HandleGetHistory)
	uploadGroup.DELETE("/:id", handlers.Upload.HandleDeleteUpload)
	uploadGroup.POST("/:id/fail", handlers.Upload.HandleFailUpload)

	// Dashboard
	api.GET("/overview", handlers.Overview.HandleOverview)

	// Notifications
	api.GET("/notifications", handlers.Notifications.HandleRecentNotifications)
	api.GET("/ws/notifications", handlers.Notifications.HandleNotificationStream)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler
}
