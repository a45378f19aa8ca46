package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#5FAFFF")
	colorSuccess = lipgloss.Color("#5FD787")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#6C7A89")

	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	styleRule    = lipgloss.NewStyle().Foreground(colorMuted)
	stylePhase   = lipgloss.NewStyle().Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
	styleBold    = lipgloss.NewStyle().Bold(true)
)

// severityStyle maps a finding severity to its display style.
func severityStyle(severity string) lipgloss.Style {
	switch severity {
	case "critical":
		return styleError
	case "high":
		return styleWarning
	case "medium":
		return lipgloss.NewStyle().Foreground(colorPrimary)
	default:
		return styleMuted
	}
}

// confidenceStyle colors a score by the action bucket it falls in.
func confidenceStyle(confidence, executeReview, requireApproval float64) lipgloss.Style {
	switch {
	case confidence >= executeReview:
		return styleSuccess
	case confidence >= requireApproval:
		return styleWarning
	default:
		return styleError
	}
}

// confidenceBar renders a 0-100 score as a fixed-width block bar.
func confidenceBar(confidence float64, width int) string {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	filled := int(confidence) * width / 100
	return fmt.Sprintf("[%s%s] %.0f%%",
		strings.Repeat("█", filled),
		strings.Repeat("░", width-filled),
		confidence)
}

func rule(width int, char string) string {
	return styleRule.Render(strings.Repeat(char, width))
}

// wrap breaks text into lines of at most width runes, on word boundaries.
func wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}
