// handlers_overview.go - Dashboard statistics handlers
package api

import (
	"net/http"

	"github.com/acord-review/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// OverviewHandlerImpl implements the OverviewHandler interface
type OverviewHandlerImpl struct {
	sim     UploadService
	journal TransitionJournal
	feed    NotificationFeed
}

// NewOverviewHandler creates a new overview handler. journal and feed are optional.
func NewOverviewHandler(sim UploadService, journal TransitionJournal, feed NotificationFeed) OverviewHandler {
	return &OverviewHandlerImpl{
		sim:     sim,
		journal: journal,
		feed:    feed,
	}
}

// HandleOverview aggregates the current snapshot with journal statistics
func (h *OverviewHandlerImpl) HandleOverview(c echo.Context) error {
	records := h.sim.Snapshot()

	overview := models.Overview{
		TotalRecords: len(records),
		ByStatus: map[models.Status]int{
			models.StatusUploading:  0,
			models.StatusProcessing: 0,
			models.StatusCompleted:  0,
			models.StatusError:      0,
		},
		VirtualClockMs: h.sim.Now().Milliseconds(),
	}
	for _, r := range records {
		overview.ByStatus[r.Status]++
		if r.Expired {
			overview.Expired++
		}
	}

	if h.journal != nil {
		stats, err := h.journal.Stats(c.Request().Context())
		if err != nil {
			return NewInternalError("failed to read journal statistics", err)
		}
		overview.Transitions = stats.Transitions
		overview.Completions = stats.Completions
		overview.AvgCompletionMs = stats.AvgCompletionMs
	}

	if h.feed != nil {
		overview.NotificationsSent = h.feed.Sent()
	}

	return c.JSON(http.StatusOK, overview)
}
