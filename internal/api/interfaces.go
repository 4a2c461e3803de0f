// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"time"

	"github.com/acord-review/backend/internal/models"
	"github.com/acord-review/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// UploadHandler handles ACORD form intake and record operations
type UploadHandler interface {
	HandleIntake(c echo.Context) error
	HandleListUploads(c echo.Context) error
	HandleListUploadsMsgpack(c echo.Context) error
	HandleGetUpload(c echo.Context) error
	HandleGetHistory(c echo.Context) error
	HandleDeleteUpload(c echo.Context) error
	HandleFailUpload(c echo.Context) error
}

// OverviewHandler handles dashboard statistics
type OverviewHandler interface {
	HandleOverview(c echo.Context) error
}

// NotificationHandler handles notification history and the live stream
type NotificationHandler interface {
	HandleRecentNotifications(c echo.Context) error
	HandleNotificationStream(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// UploadService is the simulator surface used by the handlers.
// This allows mocking in tests
type UploadService interface {
	Intake(files []models.FileIntake) ([]models.FileRecord, error)
	Remove(id string) bool
	Fail(id string, cause error) (models.FileRecord, error)
	Snapshot() []models.FileRecord
	Get(id string) (models.FileRecord, bool)
	Now() time.Duration
}

// TransitionJournal is the read side of the transition journal
type TransitionJournal interface {
	History(ctx context.Context, recordID string) ([]models.Transition, error)
	Stats(ctx context.Context) (storage.JournalStats, error)
}

// NotificationFeed exposes what the notification hub has sent
type NotificationFeed interface {
	Recent(limit int) []models.Notification
	Sent() int
}
