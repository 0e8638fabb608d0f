package signal

import (
	"bytes"
	"testing"
)

func TestPublishUpdatesBusyAndNotifies(t *testing.T) {
	t.Parallel()

	a := NewActivity()
	var got []bool
	unsub := a.Watch("ws-1", func(busy bool) { got = append(got, busy) })
	defer unsub()

	a.Publish("ws-1", true)
	a.Publish("ws-1", false)

	if a.Busy("ws-1") {
		t.Fatal("expected ws-1 to be idle after last publish")
	}
	if len(got) != 2 || !got[0] || got[1] {
		t.Fatalf("unexpected notifications: %v", got)
	}
}

func TestBusyDefaultsToIdle(t *testing.T) {
	t.Parallel()

	a := NewActivity()
	if a.Busy("never-seen") {
		t.Fatal("unseen workspace must report idle")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	a := NewActivity()
	calls := 0
	unsub := a.Watch("ws-1", func(bool) { calls++ })
	a.Publish("ws-1", true)
	unsub()
	a.Publish("ws-1", false)

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestListenerPanicIsolated(t *testing.T) {
	t.Parallel()

	a := NewActivity()
	defer a.Watch("ws-1", func(bool) { panic("broken subscriber") })()
	delivered := false
	defer a.Watch("ws-1", func(bool) { delivered = true })()

	a.Publish("ws-1", true)
	if !delivered {
		t.Fatal("panic in one listener must not block the others")
	}
}

func TestExitSignalDelivery(t *testing.T) {
	t.Parallel()

	a := NewActivity()
	var codes []int
	defer a.WatchExit("ws-1", func(code int) { codes = append(codes, code) })()

	a.PublishExit("ws-1", 0)
	a.PublishExit("ws-2", 1)

	if len(codes) != 1 || codes[0] != 0 {
		t.Fatalf("unexpected exit codes: %v", codes)
	}
}

func TestRemoveDropsState(t *testing.T) {
	t.Parallel()

	a := NewActivity()
	a.Publish("ws-1", true)
	calls := 0
	a.Watch("ws-1", func(bool) { calls++ })

	a.Remove("ws-1")
	a.Publish("ws-1", true)

	// State was dropped, so the old subscription is gone but the publish
	// re-records the busy value.
	if calls != 0 {
		t.Fatalf("expected no calls after Remove, got %d", calls)
	}
	if !a.Busy("ws-1") {
		t.Fatal("publish after Remove should still record busy")
	}
}

type fakeTerminalSource struct {
	outputFns map[string]func([]byte)
	exitFns   map[string]func(int)
}

func newFakeTerminalSource() *fakeTerminalSource {
	return &fakeTerminalSource{
		outputFns: make(map[string]func([]byte)),
		exitFns:   make(map[string]func(int)),
	}
}

func (s *fakeTerminalSource) WatchOutput(ws string, fn func([]byte)) func() {
	s.outputFns[ws] = fn
	return func() { delete(s.outputFns, ws) }
}

func (s *fakeTerminalSource) WatchExit(ws string, fn func(int)) func() {
	s.exitFns[ws] = fn
	return func() { delete(s.exitFns, ws) }
}

func TestTerminalWatcherClassifies(t *testing.T) {
	t.Parallel()

	a := NewActivity()
	src := newFakeTerminalSource()
	w := &TerminalWatcher{
		Source: src,
		Classifier: ClassifierFunc(func(chunk []byte) (bool, bool) {
			if bytes.Contains(chunk, []byte("working")) {
				return true, true
			}
			if bytes.Contains(chunk, []byte("done")) {
				return false, true
			}
			return false, false
		}),
		Activity: a,
	}
	defer w.Watch("ws-1")()

	src.outputFns["ws-1"]([]byte("working on it"))
	if !a.Busy("ws-1") {
		t.Fatal("expected busy after working chunk")
	}

	src.outputFns["ws-1"]([]byte("noise with no signal"))
	if !a.Busy("ws-1") {
		t.Fatal("unclassifiable chunk must not change state")
	}

	src.outputFns["ws-1"]([]byte("done"))
	if a.Busy("ws-1") {
		t.Fatal("expected idle after done chunk")
	}
}

type fakeContainerSource struct {
	fns map[string]func(ContainerState)
}

func (s *fakeContainerSource) WatchState(ws string, fn func(ContainerState)) func() {
	s.fns[ws] = fn
	return func() { delete(s.fns, ws) }
}

func TestContainerWatcherMapping(t *testing.T) {
	t.Parallel()

	a := NewActivity()
	src := &fakeContainerSource{fns: make(map[string]func(ContainerState))}
	w := &ContainerWatcher{Source: src, Activity: a}
	defer w.Watch("ws-1")()

	cases := []struct {
		status string
		busy   bool
	}{
		{"building", true},
		{"starting", true},
		{"ready", false},
		{"building", true},
		{"stopped", false},
		{"error", false},
	}
	for _, tc := range cases {
		src.fns["ws-1"](ContainerState{Status: tc.status})
		if a.Busy("ws-1") != tc.busy {
			t.Fatalf("status %q: expected busy=%v", tc.status, tc.busy)
		}
	}
}

func TestExitWatcherForwards(t *testing.T) {
	t.Parallel()

	a := NewActivity()
	src := newFakeTerminalSource()
	w := &ExitWatcher{Source: src, Activity: a}
	defer w.Watch("ws-1")()

	var codes []int
	defer a.WatchExit("ws-1", func(code int) { codes = append(codes, code) })()

	src.exitFns["ws-1"](2)
	if len(codes) != 1 || codes[0] != 2 {
		t.Fatalf("unexpected exit codes: %v", codes)
	}
}
