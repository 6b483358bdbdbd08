package main

import "github.com/charmbracelet/lipgloss"

var (
	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)

	title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ffff"))

	label = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888899")).
		Width(22)

	value = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00ccff")).
		Bold(true)

	good = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	bad  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
)

func row(k, v string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, label.Render(k), value.Render(v))
}
