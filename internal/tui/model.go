// Package tui holds the interactive rule editor used by `linksort rules add`
// and `linksort rules edit`.
package tui

import (
	"io"

	"linksort/internal/tui/components"
	"linksort/internal/tui/messages"
	"linksort/internal/tui/styles"
	"linksort/pkg/types"

	tea "github.com/charmbracelet/bubbletea"
)

// RuleForm is a bubbletea model editing a single rule. Submissions failing
// validate stay on screen with the error shown.
type RuleForm struct {
	editor    *components.RuleEditor
	validate  func(types.Rule) error
	rule      types.Rule
	submitted bool
	done      bool
}

// NewRuleForm creates a form pre-filled with rule. validate may be nil.
func NewRuleForm(title string, rule types.Rule, validate func(types.Rule) error) *RuleForm {
	return &RuleForm{
		editor:   components.NewRuleEditor(title, rule),
		validate: validate,
	}
}

// Init implements tea.Model
func (m *RuleForm) Init() tea.Cmd {
	return m.editor.Init()
}

// Update implements tea.Model
func (m *RuleForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.RuleSubmittedMsg:
		if m.validate != nil {
			if err := m.validate(msg.Rule); err != nil {
				return m, func() tea.Msg { return messages.ErrorMsg{Err: err} }
			}
		}
		m.rule = msg.Rule
		m.submitted = true
		m.done = true
		return m, tea.Quit

	case messages.RuleCancelledMsg:
		m.done = true
		return m, tea.Quit

	case messages.ErrorMsg:
		m.editor.SetError(msg.Err.Error())
		return m, nil
	}

	return m, m.editor.Update(msg)
}

// View implements tea.Model
func (m *RuleForm) View() string {
	if m.done {
		return ""
	}
	return styles.Theme.App.Render(m.editor.View())
}

// Result returns the submitted rule and whether Save was activated.
func (m *RuleForm) Result() (types.Rule, bool) {
	return m.rule, m.submitted
}

// Editor exposes the underlying editor.
func (m *RuleForm) Editor() *components.RuleEditor {
	return m.editor
}

// EditRule runs a RuleForm on the terminal and returns its result.
func EditRule(title string, rule types.Rule, validate func(types.Rule) error, in io.Reader, out io.Writer) (types.Rule, bool, error) {
	opts := []tea.ProgramOption{}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}

	final, err := tea.NewProgram(NewRuleForm(title, rule, validate), opts...).Run()
	if err != nil {
		return types.Rule{}, false, err
	}
	got, ok := final.(*RuleForm).Result()
	return got, ok, nil
}
