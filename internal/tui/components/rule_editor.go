package components

import (
	"strings"

	"linksort/internal/tui/messages"
	"linksort/internal/tui/styles"
	"linksort/pkg/types"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Focus positions: the four inputs, then the two buttons.
const (
	FieldName = iota
	FieldPattern
	FieldFolder
	FieldTemplate
	ButtonSave
	ButtonCancel

	focusCount
)

var labels = [...]string{"Name", "Pattern", "Folder", "Template"}

var placeholders = [...]string{
	"People",
	"Regular expression, e.g. ^@.*",
	"Destination folder, e.g. People",
	"Optional template, e.g. Templates/Person Template.md",
}

// RuleEditor edits one rule: four text inputs followed by Save and Cancel.
type RuleEditor struct {
	inputs    []textinput.Model
	cursor    int
	title     string
	statusBar *StatusBar
}

func NewRuleEditor(title string, rule types.Rule) *RuleEditor {
	re := &RuleEditor{
		inputs:    make([]textinput.Model, len(labels)),
		title:     title,
		statusBar: NewStatusBar(),
	}

	values := [...]string{rule.Name, rule.Pattern, rule.Folder, rule.Template}
	for i := range re.inputs {
		input := textinput.New()
		input.Placeholder = placeholders[i]
		input.SetValue(values[i])
		input.Width = 48
		re.inputs[i] = input
	}
	re.inputs[FieldName].Focus()

	return re
}

func (re *RuleEditor) Init() tea.Cmd {
	return textinput.Blink
}

func (re *RuleEditor) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch s := msg.String(); s {
		case "esc", "ctrl+c":
			return re.Cancel

		case "enter":
			switch re.cursor {
			case ButtonSave:
				return re.Save
			case ButtonCancel:
				return re.Cancel
			}
			return re.move(1)

		case "tab", "down":
			return re.move(1)

		case "shift+tab", "up":
			return re.move(-1)
		}
	}

	if re.cursor >= len(re.inputs) {
		return nil
	}
	if _, ok := msg.(tea.KeyMsg); ok {
		re.statusBar.SetText("")
	}
	var cmd tea.Cmd
	re.inputs[re.cursor], cmd = re.inputs[re.cursor].Update(msg)
	return cmd
}

// move cycles focus by delta, wrapping at either end.
func (re *RuleEditor) move(delta int) tea.Cmd {
	re.cursor = (re.cursor + delta + focusCount) % focusCount

	var cmds []tea.Cmd
	for i := range re.inputs {
		if i == re.cursor {
			cmds = append(cmds, re.inputs[i].Focus())
		} else {
			re.inputs[i].Blur()
		}
	}
	return tea.Batch(cmds...)
}

func (re *RuleEditor) View() string {
	var s strings.Builder

	s.WriteString(styles.Theme.Title.Render(re.title))
	s.WriteString("\n")

	for i, input := range re.inputs {
		label := styles.Theme.Label
		if i == re.cursor {
			label = styles.Theme.Selected
		}
		s.WriteString(label.Render(labels[i]) + "\n")
		s.WriteString(input.View() + "\n\n")
	}

	s.WriteString(re.button("Save", ButtonSave) + " " + re.button("Cancel", ButtonCancel) + "\n")

	if status := re.statusBar.View(); status != "" {
		s.WriteString("\n" + status + "\n")
	}
	s.WriteString("\n" + styles.Theme.Help.Render("[tab/↓] Next  [shift+tab/↑] Previous  [enter] Confirm  [esc] Cancel"))

	return s.String()
}

func (re *RuleEditor) button(text string, pos int) string {
	if re.cursor == pos {
		return styles.Theme.Active.Render(text)
	}
	return styles.Theme.Button.Render(text)
}

// Rule returns the rule currently described by the inputs. The pattern is
// kept as typed; spaces can be part of a regular expression.
func (re *RuleEditor) Rule() types.Rule {
	value := func(i int) string { return strings.TrimSpace(re.inputs[i].Value()) }
	return types.Rule{
		Name:     value(FieldName),
		Pattern:  re.inputs[FieldPattern].Value(),
		Folder:   value(FieldFolder),
		Template: value(FieldTemplate),
	}
}

// Cursor returns the focused position.
func (re *RuleEditor) Cursor() int {
	return re.cursor
}

// SetError shows msg under the buttons.
func (re *RuleEditor) SetError(msg string) {
	re.statusBar.SetError(msg)
}

// Status returns the text currently shown under the buttons.
func (re *RuleEditor) Status() string {
	return re.statusBar.Text()
}

func (re *RuleEditor) Save() tea.Msg {
	return messages.RuleSubmittedMsg{Rule: re.Rule()}
}

func (re *RuleEditor) Cancel() tea.Msg {
	return messages.RuleCancelledMsg{}
}
