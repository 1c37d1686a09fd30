package main

import "github.com/charmbracelet/lipgloss"

// Colors degrade to plain text when output is not a terminal.
var (
	colorOK    = lipgloss.Color("#00E676")
	colorBad   = lipgloss.Color("#FF5252")
	colorWarn  = lipgloss.Color("#FFD700")
	colorMuted = lipgloss.Color("#8C8C8C")
)

var (
	styleOK    = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	styleBad   = lipgloss.NewStyle().Foreground(colorBad).Bold(true)
	styleWarn  = lipgloss.NewStyle().Foreground(colorWarn)
	styleMuted = lipgloss.NewStyle().Foreground(colorMuted)
	styleLabel = lipgloss.NewStyle().Bold(true)
)

// statusStyle colors a constraint outcome.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "applied":
		return styleOK
	case "rejected":
		return styleBad
	case "implied":
		return styleMuted
	}
	return lipgloss.NewStyle()
}
