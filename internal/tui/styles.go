package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/panelsim/panelsim/internal/countdown"
)

const (
	primaryColor   = "#7C3AED" // Purple
	secondaryColor = "#10B981" // Green
	warningColor   = "#F59E0B" // Amber
	errorColor     = "#EF4444" // Red
	dimColor       = "#6B7280" // Gray
)

var (
	// BoxStyle provides a rounded border box with primary color.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(primaryColor)).
			Padding(1, 2)

	// TitleStyle renders titles in primary color with bold.
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor)).
			Bold(true)

	// DimStyle renders dim/muted text.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(dimColor))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(secondaryColor))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(errorColor))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(warningColor))

	// StatusBarStyle frames the session line above the conversation.
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(lipgloss.Color("#9CA3AF")).
			Padding(0, 1)

	// PanelStyle renders the panelist's name.
	PanelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor)).
			Bold(true)

	// UserStyle renders the user's label.
	UserStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(secondaryColor)).
			Bold(true)

	// RecordingStyle marks an active recording.
	RecordingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(errorColor)).
			Bold(true)
)

var countdownStyles = map[countdown.Level]lipgloss.Style{
	countdown.LevelNormal:  lipgloss.NewStyle().Foreground(lipgloss.Color(secondaryColor)).Bold(true),
	countdown.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color(warningColor)).Bold(true),
	countdown.LevelDanger: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(errorColor)).
		Bold(true).
		Padding(0, 1),
}

// CountdownStyle returns the style for a countdown at level l.
func CountdownStyle(l countdown.Level) lipgloss.Style {
	if s, ok := countdownStyles[l]; ok {
		return s
	}
	return countdownStyles[countdown.LevelNormal]
}
