package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/acord-review/backend/internal/logger"
	"github.com/acord-review/backend/internal/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RecentKeepsBoundedHistory(t *testing.T) {
	h := NewHub(3, logger.Discard())

	for i := 1; i <= 5; i++ {
		h.Notify(models.Notification{Title: fmt.Sprintf("n%d", i)})
	}

	recent := h.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "n3", recent[0].Title)
	assert.Equal(t, "n5", recent[2].Title)
	assert.Equal(t, 5, h.Sent())

	last := h.Recent(1)
	require.Len(t, last, 1)
	assert.Equal(t, "n5", last[0].Title)
}

func TestHub_StampsTimestamp(t *testing.T) {
	h := NewHub(0, logger.Discard())
	h.now = func() time.Time { return time.UnixMilli(1700000000000) }

	h.Notify(models.Notification{Title: "Files uploaded"})
	h.Notify(models.Notification{Title: "explicit", Timestamp: 42})

	recent := h.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(1700000000000), recent[0].Timestamp)
	assert.Equal(t, int64(42), recent[1].Timestamp)
}

func TestHub_BroadcastsToClients(t *testing.T) {
	h := NewHub(10, logger.Discard())
	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := h.Register(conn)
		close(registered)
		defer h.Unregister(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("client was not registered")
	}
	assert.Equal(t, 1, h.Clients())

	h.Notify(models.Notification{
		Type:        models.NotifyTypeUploadBatch,
		Title:       "Files uploaded",
		Description: "2 ACORD form(s) uploaded successfully",
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got models.Notification
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "Files uploaded", got.Title)
	assert.Equal(t, "2 ACORD form(s) uploaded successfully", got.Description)
}
