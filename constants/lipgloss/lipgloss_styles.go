package lipgloss

import "github.com/charmbracelet/lipgloss"

var (
	Red     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	Green   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5AF78E"))
	Yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F3F99D"))
	BlueSky = lipgloss.NewStyle().Foreground(lipgloss.Color("#57C7FF"))
	Gray    = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	Info    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#57C7FF"))
	Heading = lipgloss.NewStyle().Bold(true).Underline(true)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#57C7FF")).
			Padding(0, 1)
)
