package output

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette. Never use inline lipgloss.Color literals elsewhere.
var (
	// colorCyan is used for identifiable nouns: versions, indexes, paths, step names.
	colorCyan = lipgloss.Color("14")

	// colorGreen is used for completed steps.
	colorGreen = lipgloss.Color("82")

	// ColorYellow is used for planned (dry-run) steps.
	ColorYellow = lipgloss.Color("220")

	// colorBoldRed is used for failed steps (matches ERROR level).
	colorBoldRed = lipgloss.Color("204")

	// colorGreenCheck is used for the completion checkmark.
	colorGreenCheck = lipgloss.Color("10")
)

// Semantic styles.
var (
	// StyleNoun styles identifiable nouns.
	StyleNoun = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleAction styles action verbs (building, uploading, restoring).
	StyleAction = lipgloss.NewStyle().Bold(true)

	// StyleDim styles structural chrome (prefixes, separators).
	StyleDim = lipgloss.NewStyle().Faint(true)

	// StyleSummary styles completion and summary lines.
	StyleSummary = lipgloss.NewStyle().Bold(true)
)

// Step status values.
const (
	StatusPassed  = "passed"
	StatusPlanned = "planned"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// statusStyle returns the style for a step status. Unknown statuses are unstyled.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case StatusPassed:
		return lipgloss.NewStyle().Foreground(colorGreen)
	case StatusPlanned:
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case StatusSkipped:
		return lipgloss.NewStyle().Faint(true)
	case StatusFailed:
		return lipgloss.NewStyle().Bold(true).Foreground(colorBoldRed)
	default:
		return lipgloss.NewStyle()
	}
}

// minStepColumnWidth keeps status words aligned across step lines.
const minStepColumnWidth = 16

// FormatStepLine renders a step name with an aligned, color-coded status and
// an optional dim detail.
//
// Format: s:<step>  <status>  <detail>
func FormatStepLine(step, status, detail string) string {
	padding := minStepColumnWidth - len(step)
	if padding < 2 {
		padding = 2
	}

	line := StyleDim.Render("s:") + StyleNoun.Render(step) +
		strings.Repeat(" ", padding) + statusStyle(status).Render(status)
	if detail != "" {
		line += "  " + StyleDim.Render(detail)
	}
	return line
}

// FormatCheckmark renders a green checkmark with a message for stdout output.
func FormatCheckmark(msg string) string {
	check := lipgloss.NewStyle().Foreground(colorGreenCheck).Render("✔")
	return check + " " + msg
}

// vetLabelWidth aligns the detail column of vet check lines.
const vetLabelWidth = 28

// FormatVetCheck renders a passed validation check with an optional aligned detail.
func FormatVetCheck(label, detail string) string {
	line := FormatCheckmark(label)
	if detail == "" {
		return line
	}
	padding := vetLabelWidth - len(label)
	if padding < 2 {
		padding = 2
	}
	return line + strings.Repeat(" ", padding) + StyleNoun.Render(detail)
}
