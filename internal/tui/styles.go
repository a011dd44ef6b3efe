package tui

import "github.com/charmbracelet/lipgloss"

// palette holds every lipgloss style the TUI renders with. There is one
// palette per theme.
type palette struct {
	// Layout styles
	Container lipgloss.Style
	Divider   lipgloss.Style
	Title     lipgloss.Style

	// File selection
	Label     lipgloss.Style
	File      lipgloss.Style
	FileError lipgloss.Style

	// Outcome
	Running lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Attempt lipgloss.Style
	Hint    lipgloss.Style

	// Event log
	Log       lipgloss.Style
	LogPhase  lipgloss.Style
	LogResult lipgloss.Style
	LogError  lipgloss.Style

	Footer lipgloss.Style

	// Progress bar gradient endpoints
	BarStart string
	BarEnd   string
}

var darkPalette = palette{
	Container: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")),
	Divider: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")),

	Label: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),
	File: lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")),
	FileError: lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")),

	Running: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("82")),
	Success: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("114")),
	Error: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("196")),
	Attempt: lipgloss.NewStyle().
		Foreground(lipgloss.Color("220")),
	Hint: lipgloss.NewStyle().
		Italic(true).
		Foreground(lipgloss.Color("245")),

	Log: lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")),
	LogPhase: lipgloss.NewStyle().
		Foreground(lipgloss.Color("177")),
	LogResult: lipgloss.NewStyle().
		Foreground(lipgloss.Color("114")),
	LogError: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),

	Footer: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	BarStart: "#5A56E0",
	BarEnd:   "#EE6FF8",
}

var lightPalette = palette{
	Container: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("250")),
	Divider: lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")),
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("127")),

	Label: lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")),
	File: lipgloss.NewStyle().
		Foreground(lipgloss.Color("25")),
	FileError: lipgloss.NewStyle().
		Foreground(lipgloss.Color("166")),

	Running: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("28")),
	Success: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("22")),
	Error: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("160")),
	Attempt: lipgloss.NewStyle().
		Foreground(lipgloss.Color("130")),
	Hint: lipgloss.NewStyle().
		Italic(true).
		Foreground(lipgloss.Color("243")),

	Log: lipgloss.NewStyle().
		Foreground(lipgloss.Color("238")),
	LogPhase: lipgloss.NewStyle().
		Foreground(lipgloss.Color("91")),
	LogResult: lipgloss.NewStyle().
		Foreground(lipgloss.Color("22")),
	LogError: lipgloss.NewStyle().
		Foreground(lipgloss.Color("160")),

	Footer: lipgloss.NewStyle().
		Foreground(lipgloss.Color("243")),

	BarStart: "#1E88E5",
	BarEnd:   "#43A047",
}

// paletteFor returns the palette for the chosen theme.
func paletteFor(dark bool) palette {
	if dark {
		return darkPalette
	}
	return lightPalette
}
