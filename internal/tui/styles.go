package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPurple = lipgloss.Color("#BD93F9")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorGreen  = lipgloss.Color("#50FA7B")
	colorRed    = lipgloss.Color("#FF5555")
	colorGray   = lipgloss.Color("#6272A4")
	colorYellow = lipgloss.Color("#F1FA8C")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPurple).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPurple)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	focusedInputBoxStyle = inputBoxStyle.
				BorderForeground(colorPurple)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1).
			Width(cardWidth)

	matchedCardStyle = cardStyle.
				BorderForeground(colorGreen)

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#282A36")).
			Background(colorGreen).
			Bold(true).
			Padding(0, 1)

	buttonStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	disabledButtonStyle = lipgloss.NewStyle().
				Foreground(colorGray).
				Strikethrough(true)

	subtleStyle = lipgloss.NewStyle().Foreground(colorGray)

	loadingStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	emptyStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true).
			Padding(1, 2)
)

const (
	cardWidth   = 34
	gridColumns = 3
)
