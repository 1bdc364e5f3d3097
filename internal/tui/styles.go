package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentPrimary   = lipgloss.Color("#7C9CF5")
	accentSecondary = lipgloss.Color("#F6AE2D")
	mutedText       = lipgloss.Color("#8CA1AE")
	successText     = lipgloss.Color("#50E3C2")
	warningText     = lipgloss.Color("#FF6B6B")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentPrimary)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	labelStyle = lipgloss.NewStyle().
			Bold(true)

	fieldErrorStyle = lipgloss.NewStyle().
			Foreground(warningText)

	statusStyle = lipgloss.NewStyle().
			Foreground(accentSecondary).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	doneStepStyle    = lipgloss.NewStyle().Foreground(successText)
	activeStepStyle  = lipgloss.NewStyle().Foreground(accentSecondary).Bold(true)
	pendingStepStyle = lipgloss.NewStyle().Foreground(mutedText)

	linkStyle = lipgloss.NewStyle().
			Foreground(accentPrimary).
			Underline(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedText).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedText)
)

var toastStyles = map[string]lipgloss.Style{
	"success": lipgloss.NewStyle().Foreground(successText),
	"info":    lipgloss.NewStyle().Foreground(accentPrimary),
	"warning": lipgloss.NewStyle().Foreground(accentSecondary),
	"error":   lipgloss.NewStyle().Foreground(warningText).Bold(true),
}
