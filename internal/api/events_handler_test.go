package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/slipway/internal/events"
)

func TestEventsStreamReplaysBuffer(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.srv.hub.Publish(events.TypeLifecyclePromoted, "ws-1",
		map[string]any{"from": "active", "to": "ready-for-review"})
	f.srv.hub.Publish(events.TypeReviewState, "ws-1",
		map[string]any{"status": "running"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // stream exits right after the buffered replay

	req := httptest.NewRequest("GET", "/v1/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rec := httptest.NewRecorder()
	f.srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: lifecycle.promoted")
	assert.Contains(t, body, "event: review.state")
	assert.Contains(t, body, `"workspace":"ws-1"`)
}

func TestEventsStreamHonorsLastEventID(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.srv.hub.Publish(events.TypeLifecyclePromoted, "ws-1", nil)
	f.srv.hub.Publish(events.TypeReviewState, "ws-1", nil)

	buffered := f.srv.hub.SnapshotSince(0)
	require.NotEmpty(t, buffered)
	// Resume just before the final event.
	lastID := buffered[len(buffered)-1].ID - 1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest("GET", "/v1/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Last-Event-ID", strconv.FormatInt(lastID, 10))
	rec := httptest.NewRecorder()
	f.srv.Routes().ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.NotContains(t, body, "event: lifecycle.promoted")
	assert.Contains(t, body, "event: review.state")
	// Exactly one event replayed.
	assert.Equal(t, 1, strings.Count(body, "id: "))
}
