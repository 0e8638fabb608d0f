package signal

// Classifier decides whether a chunk of terminal output indicates that the
// session is busy. Implementations are provider-specific heuristics; ok is
// false when the chunk carries no signal either way.
type Classifier interface {
	Classify(chunk []byte) (busy bool, ok bool)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(chunk []byte) (bool, bool)

func (f ClassifierFunc) Classify(chunk []byte) (bool, bool) { return f(chunk) }

// TerminalSource is the collaborator that delivers raw terminal output and
// session-exit notifications per workspace.
type TerminalSource interface {
	WatchOutput(workspaceID string, fn func(chunk []byte)) (unsubscribe func())
	WatchExit(workspaceID string, fn func(exitCode int)) (unsubscribe func())
}

// ContainerState is pushed by the container collaborator whenever a
// workspace's dev container changes run state.
type ContainerState struct {
	Status     string `json:"status"`
	Ports      []int  `json:"ports,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// ContainerSource delivers container run-state pushes per workspace.
type ContainerSource interface {
	WatchState(workspaceID string, fn func(state ContainerState)) (unsubscribe func())
}

// AppActivitySource mirrors the UI shell's own busy indicator.
type AppActivitySource interface {
	WatchBusy(workspaceID string, fn func(busy bool)) (unsubscribe func())
}

// TerminalWatcher classifies raw output chunks into busy/idle and re-emits
// on the shared activity channel.
type TerminalWatcher struct {
	Source     TerminalSource
	Classifier Classifier
	Activity   *Activity
}

func (w *TerminalWatcher) Watch(workspaceID string) func() {
	return w.Source.WatchOutput(workspaceID, func(chunk []byte) {
		busy, ok := w.Classifier.Classify(chunk)
		if !ok {
			return
		}
		w.Activity.Publish(workspaceID, busy)
	})
}

// ContainerWatcher maps container run states onto busy/idle. Building and
// starting count as busy; ready, stopped and error count as idle.
type ContainerWatcher struct {
	Source   ContainerSource
	Activity *Activity
}

func (w *ContainerWatcher) Watch(workspaceID string) func() {
	return w.Source.WatchState(workspaceID, func(state ContainerState) {
		switch state.Status {
		case "building", "starting":
			w.Activity.Publish(workspaceID, true)
		case "ready", "stopped", "error":
			w.Activity.Publish(workspaceID, false)
		}
	})
}

// AppActivityWatcher forwards the UI's coarse busy indicator so automated
// status tracks what the user visually sees.
type AppActivityWatcher struct {
	Source   AppActivitySource
	Activity *Activity
}

func (w *AppActivityWatcher) Watch(workspaceID string) func() {
	return w.Source.WatchBusy(workspaceID, func(busy bool) {
		w.Activity.Publish(workspaceID, busy)
	})
}

// ExitWatcher forwards one-shot session-exit signals so the aggregator can
// re-evaluate busyness immediately after a provider process ends.
type ExitWatcher struct {
	Source   TerminalSource
	Activity *Activity
}

func (w *ExitWatcher) Watch(workspaceID string) func() {
	return w.Source.WatchExit(workspaceID, func(exitCode int) {
		w.Activity.PublishExit(workspaceID, exitCode)
	})
}
