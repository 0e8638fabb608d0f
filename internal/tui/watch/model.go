package watch

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/slipway/internal/events"
)

// Model is the main BubbleTea model for the board TUI.
type Model struct {
	apiURL string
	apiKey string

	width  int
	height int

	workspaces map[string]*workspaceItem
	eventLog   []events.Event
	connected  bool

	spinner spinner.Model
	theme   Theme

	hubEvents chan events.Event

	lastError string
}

// New creates a new board TUI model.
func New(apiURL, apiKey string) *Model {
	theme := NewDefaultTheme()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.ReviewRunning

	return &Model{
		apiURL:     apiURL,
		apiKey:     apiKey,
		workspaces: make(map[string]*workspaceItem),
		eventLog:   make([]events.Event, 0),
		hubEvents:  make(chan events.Event, 100),
		spinner:    sp,
		theme:      theme,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		subscribeToEvents(m.apiURL, m.apiKey, m.hubEvents),
		receiveNextEvent(m.hubEvents),
		func() tea.Msg { return fetchWorkspaces(m.apiURL, m.apiKey) },
		m.spinner.Tick,
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, func() tea.Msg { return fetchWorkspaces(m.apiURL, m.apiKey) }
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case workspacesMsg:
		seen := make(map[string]bool, len(msg))
		for i := range msg {
			item := msg[i]
			m.workspaces[item.ID] = &item
			seen[item.ID] = true
		}
		for id := range m.workspaces {
			if !seen[id] {
				delete(m.workspaces, id)
			}
		}
		m.connected = true
		m.lastError = ""
		return m, tea.Tick(10*time.Second, func(time.Time) tea.Msg {
			return fetchWorkspaces(m.apiURL, m.apiKey)
		})

	case eventMsg:
		e := events.Event(msg)

		// Newest first, capped.
		m.eventLog = append([]events.Event{e}, m.eventLog...)
		if len(m.eventLog) > 50 {
			m.eventLog = m.eventLog[:50]
		}

		m.applyEvent(e)
		m.connected = true
		m.lastError = ""

		return m, receiveNextEvent(m.hubEvents)

	case sseDisconnectedMsg:
		m.connected = false
		m.lastError = "SSE disconnected, reconnecting..."
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return reconnectMsg{}
		})

	case reconnectMsg:
		return m, subscribeToEvents(m.apiURL, m.apiKey, m.hubEvents)

	case errMsg:
		m.lastError = msg.Error()
		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg {
			return fetchWorkspaces(m.apiURL, m.apiKey)
		})
	}

	return m, nil
}

// applyEvent folds one daemon event into the board state.
func (m *Model) applyEvent(e events.Event) {
	if e.Workspace == "" {
		return
	}
	ws, ok := m.workspaces[e.Workspace]
	if !ok {
		ws = &workspaceItem{ID: e.Workspace, Status: "not-started", ReviewStatus: "idle"}
		m.workspaces[e.Workspace] = ws
	}

	switch e.Type {
	case events.TypeStatusChanged, events.TypeLifecyclePromoted:
		var data struct {
			To string `json:"to"`
		}
		if err := json.Unmarshal(e.Data, &data); err == nil && data.To != "" {
			ws.Status = data.To
		}
	case events.TypeReviewState:
		var data struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(e.Data, &data); err == nil && data.Status != "" {
			ws.ReviewStatus = data.Status
		}
	case events.TypeWorkspaceDetached:
		delete(m.workspaces, e.Workspace)
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing slipway board..."
	}

	header := m.renderHeader()
	board := m.renderBoard()
	stream := renderEventStream(m.eventLog, m.theme, m.width)

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.ReviewError.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := m.theme.Dim.Render(" [q] Quit • [r] Refresh")

	parts := []string{header, board, stream}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

func (m Model) renderHeader() string {
	conn := m.theme.StatusReady.Render("● connected")
	if !m.connected {
		conn = m.theme.ReviewError.Render("○ disconnected")
	}
	title := m.theme.Title.Render("SLIPWAY BOARD")
	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", conn)
}

func (m Model) renderBoard() string {
	columns := []struct {
		status string
		title  string
		style  lipgloss.Style
	}{
		{"not-started", "NOT STARTED", m.theme.StatusNotStarted},
		{"active", "ACTIVE", m.theme.StatusActive},
		{"ready-for-review", "READY FOR REVIEW", m.theme.StatusReady},
	}

	colWidth := (m.width - 12) / len(columns)
	if colWidth < 18 {
		colWidth = 18
	}

	rendered := make([]string, 0, len(columns))
	for _, col := range columns {
		rendered = append(rendered, m.renderColumn(col.status, col.title, col.style, colWidth))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderColumn(status, title string, style lipgloss.Style, width int) string {
	ids := make([]string, 0, len(m.workspaces))
	for id, ws := range m.workspaces {
		if ws.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	lines := []string{m.theme.Title.Render(title)}
	if len(ids) == 0 {
		lines = append(lines, m.theme.Dim.Render("  (empty)"))
	}
	for _, id := range ids {
		ws := m.workspaces[id]
		marker := "  "
		switch ws.ReviewStatus {
		case "running":
			marker = m.spinner.View() + " "
		case "error":
			marker = m.theme.ReviewError.Render("✗ ")
		case "success":
			marker = m.theme.StatusReady.Render("✓ ")
		}
		label := style.Render(id)
		if ws.PendingReview {
			label += m.theme.Highlight.Render(" *")
		}
		lines = append(lines, marker+label)
	}

	return m.theme.Column.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
}
