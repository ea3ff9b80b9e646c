package messages

import "linksort/pkg/types"

type ErrorMsg struct {
	Err error
}

// RuleSubmittedMsg is sent when Save is activated in the rule editor.
type RuleSubmittedMsg struct {
	Rule types.Rule
}

// RuleCancelledMsg is sent when the rule editor is dismissed.
type RuleCancelledMsg struct{}
