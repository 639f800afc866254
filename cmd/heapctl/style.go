package main

import "github.com/charmbracelet/lipgloss"

var (
	// Color palette
	primaryColor = lipgloss.Color("#7D56F4")
	successColor = lipgloss.Color("#04B575")
	warningColor = lipgloss.Color("#FFA500")
	errorColor   = lipgloss.Color("#FF4B4B")
	mutedColor   = lipgloss.Color("#666666")
)

// plain renders text unchanged; used for every style under --no-color.
var plain = lipgloss.NewStyle()

func styled(s lipgloss.Style) lipgloss.Style {
	if noColor {
		return plain
	}
	return s
}

func headerStyle() lipgloss.Style {
	return styled(lipgloss.NewStyle().Bold(true).Foreground(primaryColor))
}

func alertStyle() lipgloss.Style {
	return styled(lipgloss.NewStyle().
		Foreground(errorColor).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(errorColor).
		PaddingLeft(1))
}

func successStyle() lipgloss.Style {
	return styled(lipgloss.NewStyle().Foreground(successColor))
}

func warningStyle() lipgloss.Style {
	return styled(lipgloss.NewStyle().Foreground(warningColor))
}

func errorStyle() lipgloss.Style {
	return styled(lipgloss.NewStyle().Bold(true).Foreground(errorColor))
}

func mutedStyle() lipgloss.Style {
	return styled(lipgloss.NewStyle().Foreground(mutedColor))
}
