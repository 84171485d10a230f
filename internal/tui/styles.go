package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent   = lipgloss.Color("#7DCFFF")
	colorListen   = lipgloss.Color("#F7768E")
	colorPositive = lipgloss.Color("#9ECE6A")
	colorNegative = lipgloss.Color("#F7768E")
	colorNeutral  = lipgloss.Color("#C0CAF5")
	colorDim      = lipgloss.Color("#565F89")
	colorKey      = lipgloss.Color("#E0AF68")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	characterStyle = lipgloss.NewStyle().Bold(true)

	listeningStyle = lipgloss.NewStyle().Foreground(colorListen).Bold(true)

	idleStyle = lipgloss.NewStyle().Foreground(colorDim)

	bubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)

	userLabelStyle = lipgloss.NewStyle().Foreground(colorKey).Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(colorDim)

	errorStyle = lipgloss.NewStyle().Foreground(colorNegative).Bold(true)

	footerKeyStyle = lipgloss.NewStyle().Foreground(colorKey).Bold(true)

	dividerStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// sentimentStyle tints text by sentiment label.
func sentimentStyle(label string) lipgloss.Style {
	switch label {
	case "positive":
		return lipgloss.NewStyle().Foreground(colorPositive)
	case "negative":
		return lipgloss.NewStyle().Foreground(colorNegative)
	default:
		return lipgloss.NewStyle().Foreground(colorNeutral)
	}
}
