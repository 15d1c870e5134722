package cmd

import "github.com/charmbracelet/lipgloss"

var (
	muted     = lipgloss.Color("#6B7280") // Gray
	secondary = lipgloss.Color("#10B981") // Green
	primary   = lipgloss.Color("#7C3AED") // Purple
	warning   = lipgloss.Color("#F59E0B") // Amber

	nodeContainer   = lipgloss.NewStyle().Bold(true)
	nodeValue       = lipgloss.NewStyle().Foreground(secondary)
	nodeOutside     = lipgloss.NewStyle().Foreground(muted).Italic(true)
	nodeDelimiter   = lipgloss.NewStyle().Foreground(primary).Bold(true)
	countStyle      = lipgloss.NewStyle().Foreground(muted)
	sourcePathStyle = lipgloss.NewStyle().Foreground(warning)
	treeBranch      = lipgloss.NewStyle().Foreground(muted)
)

// render applies style unless plain output was requested.
func render(style lipgloss.Style, s string) string {
	if plain {
		return s
	}
	return style.Render(s)
}
