// Package router selects the routing rule, if any, for a newly created file.
//
// Rules are compiled once and evaluated in definition order. A rule applies
// when its pattern matches the bare filename and the file does not already
// live in the rule's folder; the first applicable rule wins. Route has no side
// effects, so the daemon, the CLI and tests share it freely.
package router

import (
	"path"
	"regexp"

	"linksort/internal/config"
	"linksort/internal/errors"
	"linksort/internal/log"
	"linksort/pkg/types"
)

// Decision explains why a rule did or did not apply to a file.
type Decision string

const (
	Matched         Decision = "matched"
	NoMatch         Decision = "pattern mismatch"
	AlreadyInFolder Decision = "already in folder"
	Unusable        Decision = "missing pattern or folder"
	InvalidPattern  Decision = "invalid pattern"
	NotEvaluated    Decision = "not evaluated"
)

// Verdict is one rule's decision for one file.
type Verdict struct {
	Index    int
	Rule     types.Rule
	Decision Decision
	Err      error
}

type compiledRule struct {
	rule   types.Rule
	folder string
	re     *regexp.Regexp
	err    error
}

// Router holds compiled rules.
type Router struct {
	rules []compiledRule
}

// New compiles rules. Rules whose
// pattern does not compile stay in place but never match; the error is logged
// once here.
func New(rules []types.Rule) *Router {
	r := &Router{rules: make([]compiledRule, 0, len(rules))}
	for _, rule := range rules {
		cr := compiledRule{rule: rule, folder: cleanFolder(rule.Folder)}
		if rule.Pattern != "" {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				cr.err = errors.NewRuleError("invalid pattern", rule.Label(), errors.InvalidRule, err)
				log.LogWithError(cr.err).Warn("Rule ignored")
			}
			cr.re = re
		}
		r.rules = append(r.rules, cr)
	}
	return r
}

// FromConfig builds a Router from the config's active rules; in single mode
// that is only the first one.
func FromConfig(cfg *config.Config) *Router {
	return New(cfg.ActiveRules())
}

// Len returns the number of rules considered.
func (r *Router) Len() int {
	return len(r.rules)
}

// Route returns the first rule applying to ev.
func (r *Router) Route(ev types.FileEvent) (types.Rule, bool) {
	for i := range r.rules {
		if r.rules[i].decide(ev) == Matched {
			return r.rules[i].rule, true
		}
	}
	return types.Rule{}, false
}

// Explain returns a verdict for every rule. Rules after the winner are marked
// NotEvaluated, mirroring Route's early exit.
func (r *Router) Explain(ev types.FileEvent) []Verdict {
	verdicts := make([]Verdict, 0, len(r.rules))
	won := false
	for i := range r.rules {
		v := Verdict{Index: i, Rule: r.rules[i].rule, Decision: NotEvaluated}
		if !won {
			v.Decision = r.rules[i].decide(ev)
			v.Err = r.rules[i].err
			won = v.Decision == Matched
		}
		verdicts = append(verdicts, v)
	}
	return verdicts
}

func (c *compiledRule) decide(ev types.FileEvent) Decision {
	if !c.rule.Usable() {
		return Unusable
	}
	if c.err != nil || c.re == nil {
		return InvalidPattern
	}
	if !c.re.MatchString(ev.Name) {
		return NoMatch
	}
	if ev.ParentName == c.rule.Folder || ev.Dir == c.folder {
		return AlreadyInFolder
	}
	return Matched
}

// cleanFolder normalises a folder the same way vault paths are normalised, so
// "/People/" and "People" compare equal with FileEvent.Dir.
func cleanFolder(folder string) string {
	cleaned := path.Clean("/" + folder)
	if cleaned == "/" {
		return ""
	}
	return cleaned[1:]
}
