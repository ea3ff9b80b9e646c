package components

import (
	"linksort/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

type StatusBar struct {
	text  string
	style lipgloss.Style
}

func NewStatusBar() *StatusBar {
	return &StatusBar{style: styles.Theme.Help}
}

func (s *StatusBar) SetText(text string) {
	s.text = text
	s.style = styles.Theme.Help
}

// SetError shows text in the error style until the next SetText.
func (s *StatusBar) SetError(text string) {
	s.text = text
	s.style = styles.Theme.Error
}

func (s *StatusBar) Text() string {
	return s.text
}

func (s *StatusBar) View() string {
	if s.text == "" {
		return ""
	}
	return s.style.Render(s.text)
}
