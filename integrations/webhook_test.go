package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chxlky/lichtrinh/internal/reminder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNotification() reminder.Notification {
	return reminder.Notification{
		EventID:     4,
		Name:        "họp nhóm",
		Start:       time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
		MinutesLeft: 5,
		Message:     "Sắp đến: họp nhóm trong 5 phút!",
	}
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var got reminder.Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	require.NoError(t, n.Notify(context.Background(), testNotification()))

	assert.Equal(t, uint(4), got.EventID)
	assert.Equal(t, "họp nhóm", got.Name)
	assert.Equal(t, 5, got.MinutesLeft)
}

func TestWebhookNotifierRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	n.Delay = time.Millisecond
	require.NoError(t, n.Notify(context.Background(), testNotification()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookNotifierStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	n.Delay = time.Millisecond
	assert.Error(t, n.Notify(context.Background(), testNotification()))
	assert.Equal(t, int32(1), calls.Load())
}
