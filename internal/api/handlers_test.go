package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/acord-review/backend/internal/logger"
	"github.com/acord-review/backend/internal/models"
	"github.com/acord-review/backend/internal/notify"
	"github.com/acord-review/backend/internal/storage"
	"github.com/acord-review/backend/internal/testutil"
	"github.com/acord-review/backend/internal/upload"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	e       *echo.Echo
	sim     *upload.Simulator
	hub     *notify.Hub
	journal *storage.Journal
}

func newTestServer(t *testing.T, ratePerSecond float64, burst int) *testServer {
	t.Helper()
	log := logger.Discard()

	journal, err := storage.NewJournal("", log)
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	hub := notify.NewHub(10, log)
	sim := upload.NewSimulator(storage.NewMemoryStore(), upload.DefaultConfig(),
		upload.WithNotifier(hub),
		upload.WithObserver(journal),
		upload.WithIDGenerator(testutil.SequentialIDs("acord")),
		upload.WithLogger(log),
	)

	e := echo.New()
	SetupMiddleware(e)
	RegisterRoutes(e, NewHandlers(&Dependencies{
		Simulator:           sim,
		Journal:             journal,
		Hub:                 hub,
		Logger:              log,
		Version:             "test",
		IntakeRatePerSecond: ratePerSecond,
		IntakeRateBurst:     burst,
	}))

	return &testServer{e: e, sim: sim, hub: hub, journal: journal}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = jsonRequest(method, target, body)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_UploadLifecycle(t *testing.T) {
	srv := newTestServer(t, 0, 0)

	rec := srv.do(http.MethodPost, "/api/uploads", `{"files":[{"name":"ACORD_25.pdf","size":4096,"type":"application/pdf"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created intakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Records[0].ID

	srv.sim.Advance(2 * time.Second)
	rec = srv.do(http.MethodGet, "/api/uploads/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"processing"`)
	assert.Contains(t, rec.Body.String(), `"progress":100`)

	srv.sim.Advance(tick())
	rec = srv.do(http.MethodGet, "/api/uploads/"+id+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Transitions, 3)
	assert.Equal(t, models.ReasonIntake, history.Transitions[0].Reason)
	assert.Equal(t, models.StatusCompleted, history.Transitions[2].To)

	rec = srv.do(http.MethodGet, "/api/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var overview models.Overview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	assert.Equal(t, 1, overview.TotalRecords)
	assert.Equal(t, 1, overview.ByStatus[models.StatusCompleted])
	assert.Equal(t, 0, overview.ByStatus[models.StatusUploading])
	assert.Equal(t, 3, overview.Transitions)
	assert.Equal(t, 1, overview.Completions)
	assert.InDelta(t, 2200, overview.AvgCompletionMs, 0.001)
	assert.Equal(t, 1, overview.NotificationsSent)

	rec = srv.do(http.MethodDelete, "/api/uploads/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(http.MethodGet, "/api/uploads/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}

func tick() time.Duration { return upload.DefaultConfig().TickInterval }

func TestRoutes_Notifications(t *testing.T) {
	srv := newTestServer(t, 0, 0)

	for i := 0; i < 3; i++ {
		rec := srv.do(http.MethodPost, "/api/uploads", `{"files":[{"name":"a.pdf","size":1},{"name":"b.pdf","size":1}]}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := srv.do(http.MethodGet, "/api/notifications?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var notes []models.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes, 2)
	for _, n := range notes {
		assert.Equal(t, "Files uploaded", n.Title)
		assert.Equal(t, "2 ACORD form(s) uploaded successfully", n.Description)
	}

	rec = srv.do(http.MethodGet, "/api/notifications?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutes_IntakeRateLimited(t *testing.T) {
	srv := newTestServer(t, 0.001, 2)
	body := `{"files":[{"name":"a.pdf","size":1}]}`

	assert.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/uploads", body).Code)
	assert.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/uploads", body).Code)

	rec := srv.do(http.MethodPost, "/api/uploads", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"RATE_LIMITED"`)

	// reads are not limited
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/uploads", "").Code)
}

func TestRoutes_Health(t *testing.T) {
	srv := newTestServer(t, 0, 0)
	srv.sim.Advance(1500 * time.Millisecond)

	rec := srv.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
	assert.Contains(t, rec.Body.String(), `"virtualClockMs":1500`)
}

func TestRoutes_NotificationStream(t *testing.T) {
	srv := newTestServer(t, 0, 0)
	httpSrv := httptest.NewServer(srv.e)
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/ws/notifications"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var welcome WSMessage
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, MsgTypeConnected, welcome.Type)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypePing}))
	var pong WSMessage
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, MsgTypePong, pong.Type)

	require.Eventually(t, func() bool { return srv.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	_, err = srv.sim.Intake([]models.FileIntake{{Name: "ACORD_126.pdf", Size: 10}})
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var note models.Notification
	require.NoError(t, conn.ReadJSON(&note))
	assert.Equal(t, "Files uploaded", note.Title)
	assert.Equal(t, "1 ACORD form(s) uploaded successfully", note.Description)
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"api error", NewConflictError("busy"), http.StatusConflict, "CONFLICT"},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed, "HTTP_ERROR"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
		{"wrapped simulator error", fromSimulatorError(upload.ErrTerminal, "x"), http.StatusConflict, "CONFLICT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			ErrorHandler(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestFromSimulatorError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, fromSimulatorError(upload.ErrNotFound, "id").Status)
	assert.Equal(t, http.StatusConflict, fromSimulatorError(storage.ErrDuplicateID, "").Status)
	assert.Equal(t, "VALIDATION_ERROR", fromSimulatorError(upload.ErrEmptyBatch, "").Code)
	assert.Equal(t, http.StatusBadRequest, fromSimulatorError(upload.ErrInvalidFile, "").Status)
	assert.Equal(t, http.StatusInternalServerError, fromSimulatorError(errors.New("disk"), "").Status)
}
