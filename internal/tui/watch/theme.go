// Package watch implements the slipway board TUI: three lifecycle
// columns fed by the daemon's SSE stream.
package watch

import "github.com/charmbracelet/lipgloss"

// Theme centralizes all styling for the watch TUI.
type Theme struct {
	StatusNotStarted lipgloss.Style
	StatusActive     lipgloss.Style
	StatusReady      lipgloss.Style
	ReviewRunning    lipgloss.Style
	ReviewError      lipgloss.Style

	Border    lipgloss.Style
	Column    lipgloss.Style
	Title     lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")

	return Theme{
		StatusNotStarted: lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		StatusActive:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		StatusReady:      lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		ReviewRunning:    lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF")),
		ReviewError:      lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple),
		Column: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
	}
}
