// Package tui provides Bubble Tea views for the benchlink CLI.
//
// Views are opt-in (--tui), read-only, and render the same payloads as the
// json and table formats.
package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

// Styles for TUI components.
var (
	// TitleStyle for headers and titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(16)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// SuccessStyle for success states.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// WarningStyle for warning states.
	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle for error states.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// BoxStyle for bordered containers.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	// StatBoxStyle for stat display boxes.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlightColor).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)

	// StatLabelStyle for stat labels.
	StatLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Align(lipgloss.Center)

	// StatValueStyle for stat values.
	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Align(lipgloss.Center)
)

// OutcomeStyle colors a batch outcome or a sample failure kind.
func OutcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "scored", "correct":
		return SuccessStyle
	case "nothing_scored", "wrong":
		return WarningStyle
	case "":
		return ValueStyle
	default:
		return ErrorStyle
	}
}

// AccuracyStyle grades an accuracy value.
func AccuracyStyle(acc *float64) lipgloss.Style {
	switch {
	case acc == nil:
		return LabelStyle.UnsetWidth()
	case *acc >= 0.9:
		return SuccessStyle
	case *acc >= 0.5:
		return WarningStyle
	default:
		return ErrorStyle
	}
}

// FormatAccuracy prints an accuracy as a percentage, or n/a when absent.
func FormatAccuracy(acc *float64) string {
	if acc == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *acc*100)
}
