package watch

import (
	"testing"
	"time"

	"github.com/mattjoyce/slipway/internal/events"
)

func TestApplyEventPromotion(t *testing.T) {
	t.Parallel()

	m := New("http://localhost:8080", "key")
	m.applyEvent(events.Event{
		Type:      events.TypeLifecyclePromoted,
		Workspace: "ws-1",
		Data:      []byte(`{"from":"active","to":"ready-for-review"}`),
	})

	ws, ok := m.workspaces["ws-1"]
	if !ok {
		t.Fatal("workspace not created from event")
	}
	if ws.Status != "ready-for-review" {
		t.Fatalf("status = %q, want ready-for-review", ws.Status)
	}
}

func TestApplyEventReviewState(t *testing.T) {
	t.Parallel()

	m := New("http://localhost:8080", "key")
	m.applyEvent(events.Event{
		Type:      events.TypeReviewState,
		Workspace: "ws-1",
		Data:      []byte(`{"status":"running"}`),
	})
	if m.workspaces["ws-1"].ReviewStatus != "running" {
		t.Fatal("review status not applied")
	}
}

func TestApplyEventDetachRemoves(t *testing.T) {
	t.Parallel()

	m := New("http://localhost:8080", "key")
	m.workspaces["ws-1"] = &workspaceItem{ID: "ws-1", Status: "active"}
	m.applyEvent(events.Event{Type: events.TypeWorkspaceDetached, Workspace: "ws-1"})
	if _, ok := m.workspaces["ws-1"]; ok {
		t.Fatal("detached workspace still on board")
	}
}

func TestExtractEventDesc(t *testing.T) {
	t.Parallel()

	desc := extractEventDesc(events.Event{
		Workspace: "ws-1",
		At:        time.Now(),
		Data:      []byte(`{"to":"active","reason":"busy signal"}`),
	})
	if desc != "[ws-1] active busy signal" {
		t.Fatalf("unexpected desc: %q", desc)
	}
}
