package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains all lipgloss styles for the TUI
type Styles struct {
	// Header styling
	Title   lipgloss.Style
	Timer   lipgloss.Style
	Workers lipgloss.Style

	// Job styling
	JobActive lipgloss.Style
	JobName   lipgloss.Style

	// Progress bar colors
	ProgressFilled lipgloss.Style
	ProgressEmpty  lipgloss.Style

	// Phase icons and text
	PhaseIcon lipgloss.Style
	PhaseText lipgloss.Style

	// Footer styling
	Footer    lipgloss.Style
	FooterKey lipgloss.Style

	// Status counts
	StatusComplete lipgloss.Style
	StatusFailed   lipgloss.Style
	StatusSkipped  lipgloss.Style
	StatusActive   lipgloss.Style

	// Failure tail styling
	FailTitle lipgloss.Style
	FailLine  lipgloss.Style
}

// DefaultStyles returns the default TUI styles
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Timer:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Workers: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

		JobActive: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		JobName:   lipgloss.NewStyle().Bold(true),

		ProgressFilled: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		ProgressEmpty:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),

		PhaseIcon: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		PhaseText: lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Italic(true),

		Footer:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1),
		FooterKey: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),

		StatusComplete: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		StatusFailed:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		StatusSkipped:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		StatusActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),

		FailTitle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Bold(true),
		FailLine:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Icons used in the TUI
const (
	IconActive   = "●"
	IconComplete = "✓"
	IconFailed   = "✗"
	IconUpload   = "📤"
	IconAnnotate = "🧬"
	IconWaiting  = "⏳"
)
