package signal

import (
	"strings"
	"sync"
)

// PushSource fans collaborator notifications delivered over the API into
// the watcher adapters. It implements TerminalSource, ContainerSource and
// AppActivitySource, so pushed reports take the same classification path
// as any in-process source would.
type PushSource struct {
	mu      sync.Mutex
	nextSub int
	outputs map[string]map[int]func(chunk []byte)
	exits   map[string]map[int]func(exitCode int)
	states  map[string]map[int]func(state ContainerState)
	busys   map[string]map[int]func(busy bool)
}

func NewPushSource() *PushSource {
	return &PushSource{
		outputs: make(map[string]map[int]func([]byte)),
		exits:   make(map[string]map[int]func(int)),
		states:  make(map[string]map[int]func(ContainerState)),
		busys:   make(map[string]map[int]func(bool)),
	}
}

func (p *PushSource) WatchOutput(workspaceID string, fn func(chunk []byte)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.outputs[workspaceID] == nil {
		p.outputs[workspaceID] = make(map[int]func([]byte))
	}
	id := p.nextSub
	p.nextSub++
	p.outputs[workspaceID][id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.outputs[workspaceID], id)
	}
}

func (p *PushSource) WatchExit(workspaceID string, fn func(exitCode int)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exits[workspaceID] == nil {
		p.exits[workspaceID] = make(map[int]func(int))
	}
	id := p.nextSub
	p.nextSub++
	p.exits[workspaceID][id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.exits[workspaceID], id)
	}
}

func (p *PushSource) WatchState(workspaceID string, fn func(state ContainerState)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.states[workspaceID] == nil {
		p.states[workspaceID] = make(map[int]func(ContainerState))
	}
	id := p.nextSub
	p.nextSub++
	p.states[workspaceID][id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.states[workspaceID], id)
	}
}

func (p *PushSource) WatchBusy(workspaceID string, fn func(busy bool)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.busys[workspaceID] == nil {
		p.busys[workspaceID] = make(map[int]func(bool))
	}
	id := p.nextSub
	p.nextSub++
	p.busys[workspaceID][id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.busys[workspaceID], id)
	}
}

func (p *PushSource) PublishOutput(workspaceID string, chunk []byte) {
	p.mu.Lock()
	fns := make([]func([]byte), 0, len(p.outputs[workspaceID]))
	for _, fn := range p.outputs[workspaceID] {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(chunk)
	}
}

func (p *PushSource) PublishExit(workspaceID string, exitCode int) {
	p.mu.Lock()
	fns := make([]func(int), 0, len(p.exits[workspaceID]))
	for _, fn := range p.exits[workspaceID] {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(exitCode)
	}
}

func (p *PushSource) PublishState(workspaceID string, state ContainerState) {
	p.mu.Lock()
	fns := make([]func(ContainerState), 0, len(p.states[workspaceID]))
	for _, fn := range p.states[workspaceID] {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(state)
	}
}

func (p *PushSource) PublishBusy(workspaceID string, busy bool) {
	p.mu.Lock()
	fns := make([]func(bool), 0, len(p.busys[workspaceID]))
	for _, fn := range p.busys[workspaceID] {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(busy)
	}
}

// Ingress is the daemon-side landing point for collaborator pushes. It
// owns one watcher of each kind over a shared PushSource and keeps their
// per-workspace subscriptions alive while a workspace is attached.
type Ingress struct {
	push *PushSource

	terminal  *TerminalWatcher
	container *ContainerWatcher
	app       *AppActivityWatcher
	exit      *ExitWatcher

	mu      sync.Mutex
	watched map[string][]func()
}

// NewIngress builds an Ingress publishing into activity. A nil classifier
// falls back to DefaultClassifier.
func NewIngress(activity *Activity, classifier Classifier) *Ingress {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	push := NewPushSource()
	return &Ingress{
		push:      push,
		terminal:  &TerminalWatcher{Source: push, Classifier: classifier, Activity: activity},
		container: &ContainerWatcher{Source: push, Activity: activity},
		app:       &AppActivityWatcher{Source: push, Activity: activity},
		exit:      &ExitWatcher{Source: push, Activity: activity},
		watched:   make(map[string][]func()),
	}
}

// Attach wires all watcher kinds for a workspace. Idempotent.
func (in *Ingress) Attach(workspaceID string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if _, ok := in.watched[workspaceID]; ok {
		return
	}
	in.watched[workspaceID] = []func(){
		in.terminal.Watch(workspaceID),
		in.container.Watch(workspaceID),
		in.app.Watch(workspaceID),
		in.exit.Watch(workspaceID),
	}
}

// Detach drops the workspace's watcher subscriptions; later pushes for it
// are discarded.
func (in *Ingress) Detach(workspaceID string) {
	in.mu.Lock()
	unsubs := in.watched[workspaceID]
	delete(in.watched, workspaceID)
	in.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}

// TerminalOutput delivers a raw output chunk for classification.
func (in *Ingress) TerminalOutput(workspaceID string, chunk []byte) {
	in.push.PublishOutput(workspaceID, chunk)
}

// ContainerStateChange delivers a dev-container run-state report.
func (in *Ingress) ContainerStateChange(workspaceID string, state ContainerState) {
	in.push.PublishState(workspaceID, state)
}

// AppActivity delivers the UI shell's coarse busy indicator.
func (in *Ingress) AppActivity(workspaceID string, busy bool) {
	in.push.PublishBusy(workspaceID, busy)
}

// SessionExit delivers a one-shot provider process exit.
func (in *Ingress) SessionExit(workspaceID string, exitCode int) {
	in.push.PublishExit(workspaceID, exitCode)
}

// promptSuffixes are the interactive prompt tails that mark a session as
// settled. Anything else a session prints counts as work in progress.
var promptSuffixes = []string{"$", ">", "%", "❯"}

// DefaultClassifier treats printed output as busy, except chunks ending at
// an interactive prompt, which read as the session settling back to idle.
// Whitespace-only chunks carry no signal.
func DefaultClassifier() Classifier {
	return ClassifierFunc(func(chunk []byte) (bool, bool) {
		text := strings.TrimRight(string(chunk), " \t\r\n")
		if text == "" {
			return false, false
		}
		for _, suffix := range promptSuffixes {
			if strings.HasSuffix(text, suffix) {
				return false, true
			}
		}
		return true, true
	})
}
