// Visual styling for the sysNERD terminal session.
package main

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.Color("#8BC34A") // lime green
	colorInfo    = lipgloss.Color("#2196F3") // blue
	colorWarning = lipgloss.Color("#FFC107") // yellow
	colorError   = lipgloss.Color("#e53935") // red
	colorMuted   = lipgloss.Color("243")
)

// styles groups the lipgloss styles used by the REPL and single-shot mode.
type styles struct {
	Banner  lipgloss.Style
	Prompt  lipgloss.Style
	Command lipgloss.Style
	Muted   lipgloss.Style
	Header  lipgloss.Style
	Error   lipgloss.Style
	Warn    lipgloss.Style
}

func newStyles() styles {
	return styles{
		Banner:  lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Prompt:  lipgloss.NewStyle().Bold(true).Foreground(colorInfo),
		Command: lipgloss.NewStyle().Foreground(colorAccent),
		Muted:   lipgloss.NewStyle().Foreground(colorMuted),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(colorInfo),
		Error:   lipgloss.NewStyle().Foreground(colorError),
		Warn:    lipgloss.NewStyle().Foreground(colorWarning),
	}
}
