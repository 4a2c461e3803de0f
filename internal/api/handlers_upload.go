// handlers_upload.go - ACORD form intake and record handlers
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/acord-review/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	sim     UploadService
	journal TransitionJournal
}

// NewUploadHandler creates a new upload handler instance.
// journal may be nil, in which case history is unavailable.
func NewUploadHandler(sim UploadService, journal TransitionJournal) UploadHandler {
	return &UploadHandlerImpl{
		sim:     sim,
		journal: journal,
	}
}

// HandleIntake accepts a batch of files, either as JSON metadata or as a
// multipart form with one "files" part per file.
func (h *UploadHandlerImpl) HandleIntake(c echo.Context) error {
	var files []models.FileIntake

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return NewBadRequestError("invalid multipart form", err)
		}
		for _, fh := range form.File["files"] {
			files = append(files, models.FileIntake{
				Name: fh.Filename,
				Size: fh.Size,
				Type: fh.Header.Get(echo.HeaderContentType),
			})
		}
	} else {
		var req intakeRequest
		if err := c.Bind(&req); err != nil {
			return NewBadRequestError("invalid JSON body", err)
		}
		if err := req.validate(); err != nil {
			return err
		}
		files = req.intakes()
	}

	if len(files) == 0 {
		return NewValidationError("files")
	}

	records, err := h.sim.Intake(files)
	if err != nil {
		return fromSimulatorError(err, "")
	}

	return c.JSON(http.StatusCreated, intakeResponse{
		Records: records,
		Count:   len(records),
	})
}

// HandleListUploads returns every record in intake order
func (h *UploadHandlerImpl) HandleListUploads(c echo.Context) error {
	return c.JSON(http.StatusOK, h.snapshot())
}

// HandleListUploadsMsgpack returns the snapshot in MessagePack format
func (h *UploadHandlerImpl) HandleListUploadsMsgpack(c echo.Context) error {
	data, err := msgpack.Marshal(h.snapshot())
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *UploadHandlerImpl) snapshot() snapshotResponse {
	records := h.sim.Snapshot()
	return snapshotResponse{
		Records:        records,
		Total:          len(records),
		VirtualClockMs: h.sim.Now().Milliseconds(),
	}
}

// HandleGetUpload returns one record
func (h *UploadHandlerImpl) HandleGetUpload(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	rec, ok := h.sim.Get(id)
	if !ok {
		return NewNotFoundError("upload", id)
	}

	return c.JSON(http.StatusOK, rec)
}

// HandleGetHistory returns the journaled transitions of a record. History
// outlives removal, so a removed record still answers while it has entries.
func (h *UploadHandlerImpl) HandleGetHistory(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	if h.journal == nil {
		return NewServiceUnavailableError("transition journal not configured")
	}

	history, err := h.journal.History(c.Request().Context(), id)
	if err != nil {
		return NewInternalError("failed to read history", err)
	}
	if len(history) == 0 {
		if _, ok := h.sim.Get(id); !ok {
			return NewNotFoundError("upload", id)
		}
	}

	return c.JSON(http.StatusOK, historyResponse{
		RecordID:    id,
		Transitions: history,
	})
}

// HandleDeleteUpload removes a record and cancels its timers.
// Removing an unknown id is a no-op and still answers 204.
func (h *UploadHandlerImpl) HandleDeleteUpload(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	h.sim.Remove(id)
	return c.NoContent(http.StatusNoContent)
}

// HandleFailUpload moves an in-flight record to error
func (h *UploadHandlerImpl) HandleFailUpload(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req failRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	var cause error
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		cause = errors.New(reason)
	}

	rec, err := h.sim.Fail(id, cause)
	if err != nil {
		return fromSimulatorError(err, id)
	}

	return c.JSON(http.StatusOK, rec)
}

// Request/Response types

type intakeFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

type intakeRequest struct {
	Files []intakeFile `json:"files"`
}

func (r *intakeRequest) validate() error {
	if len(r.Files) == 0 {
		return NewValidationError("files")
	}
	for _, f := range r.Files {
		if strings.TrimSpace(f.Name) == "" {
			return NewValidationError("files.name")
		}
		if f.Size < 0 {
			return NewValidationError("files.size")
		}
	}
	return nil
}

func (r *intakeRequest) intakes() []models.FileIntake {
	out := make([]models.FileIntake, len(r.Files))
	for i, f := range r.Files {
		out[i] = models.FileIntake{Name: f.Name, Size: f.Size, Type: f.Type}
	}
	return out
}

type intakeResponse struct {
	Records []models.FileRecord `json:"records"`
	Count   int                 `json:"count"`
}

type snapshotResponse struct {
	Records        []models.FileRecord `json:"records" msgpack:"records"`
	Total          int                 `json:"total" msgpack:"total"`
	VirtualClockMs int64               `json:"virtualClockMs" msgpack:"virtualClockMs"`
}

type historyResponse struct {
	RecordID    string              `json:"recordId"`
	Transitions []models.Transition `json:"transitions"`
}

type failRequest struct {
	Reason string `json:"reason"`
}
