package styles

import "github.com/charmbracelet/lipgloss"

// Theme defines the core UI styles
var Theme = struct {
	App      lipgloss.Style
	Title    lipgloss.Style
	Label    lipgloss.Style
	Selected lipgloss.Style
	Button   lipgloss.Style
	Active   lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style
}{
	App: lipgloss.NewStyle().
		Padding(1, 2),
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7B61FF")).
		MarginBottom(1),
	Label: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#959595")),
	Selected: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#73F59F")).
		Bold(true),
	Button: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#CCCCCC")).
		Padding(0, 1),
	Active: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#4F4FB7")).
		Padding(0, 1),
	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF0000")),
	Help: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5A9")),
}
