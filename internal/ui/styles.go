// Package ui renders command output for humans.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Accent marks note ids, paths and scores.
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))

	// Muted is for secondary info and previews.
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	Bold = lipgloss.NewStyle().Bold(true)

	// Heading is used for section titles.
	Heading = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA")).Bold(true)

	// Warning highlights degraded states.
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
)
