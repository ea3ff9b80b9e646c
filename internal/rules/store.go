// Package rules edits the ordered rule list of a loaded configuration and
// persists every change immediately.
package rules

import (
	"strconv"
	"sync"

	"linksort/internal/config"
	"linksort/internal/errors"
	"linksort/internal/log"
	"linksort/pkg/types"
)

// Persister writes the configuration somewhere durable. *config.Config
// persists to the file it was loaded from.
type Persister interface {
	Save() error
}

// Store is the settings editor's view of the rule list.
type Store struct {
	mu      sync.Mutex
	cfg     *config.Config
	persist Persister
}

// NewStore edits cfg.Rules and saves cfg after each change.
func NewStore(cfg *config.Config) *Store {
	return NewStoreWithPersister(cfg, cfg)
}

// NewStoreWithPersister edits cfg.Rules and saves through p.
func NewStoreWithPersister(cfg *config.Config, p Persister) *Store {
	return &Store{cfg: cfg, persist: p}
}

// List returns a copy of the rules in evaluation order.
func (s *Store) List() []types.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Rule(nil), s.cfg.Rules...)
}

// Len returns the number of rules.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cfg.Rules)
}

// Get returns the rule at i.
func (s *Store) Get(i int) (types.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(i); err != nil {
		return types.Rule{}, err
	}
	return s.cfg.Rules[i], nil
}

// Add appends rule. Incomplete rules are rejected and nothing changes.
func (s *Store) Add(rule types.Rule) error {
	if err := Validate(rule); err != nil {
		return err
	}
	return s.mutate("add", func(rules []types.Rule) ([]types.Rule, error) {
		return append(rules, rule), nil
	})
}

// Update replaces the rule at i.
func (s *Store) Update(i int, rule types.Rule) error {
	if err := Validate(rule); err != nil {
		return err
	}
	return s.mutate("update", func(rules []types.Rule) ([]types.Rule, error) {
		if err := s.checkIndex(i); err != nil {
			return nil, err
		}
		rules[i] = rule
		return rules, nil
	})
}

// Delete removes the rule at i.
func (s *Store) Delete(i int) error {
	return s.mutate("delete", func(rules []types.Rule) ([]types.Rule, error) {
		if err := s.checkIndex(i); err != nil {
			return nil, err
		}
		return append(rules[:i], rules[i+1:]...), nil
	})
}

// Move relocates the rule at from to index to, shifting the rules between.
func (s *Store) Move(from, to int) error {
	return s.mutate("move", func(rules []types.Rule) ([]types.Rule, error) {
		if err := s.checkIndex(from); err != nil {
			return nil, err
		}
		if err := s.checkIndex(to); err != nil {
			return nil, err
		}
		rule := rules[from]
		rules = append(rules[:from], rules[from+1:]...)
		rules = append(rules[:to], append([]types.Rule{rule}, rules[to:]...)...)
		return rules, nil
	})
}

// Validate reports whether rule may be committed: it needs a name and a
// pattern. A rule without a folder is accepted but never routes anything.
func Validate(rule types.Rule) error {
	if rule.Name == "" {
		return errors.NewInvalidInputError("rule name is required", "name")
	}
	if rule.Pattern == "" {
		return errors.NewInvalidInputError("rule pattern is required", "pattern")
	}
	return nil
}

// mutate applies fn to a copy of the rules and persists the result. On a
// failed save the previous rules are restored.
func (s *Store) mutate(op string, fn func([]types.Rule) ([]types.Rule, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cfg.Rules
	next, err := fn(append([]types.Rule(nil), prev...))
	if err != nil {
		return err
	}

	s.cfg.Rules = next
	if err := s.persist.Save(); err != nil {
		s.cfg.Rules = prev
		log.LogWithError(err).With(log.F("operation", op)).Error("Failed to save rules")
		return errors.Wrapf(err, "saving rules after %s", op)
	}

	log.LogWithFields(log.F("operation", op), log.F("rules", len(next))).Debug("Rules saved")
	return nil
}

func (s *Store) checkIndex(i int) error {
	if i < 0 || i >= len(s.cfg.Rules) {
		return errors.NewRuleError("no rule at index", strconv.Itoa(i), errors.RuleNotFound, errors.ErrRuleNotFound)
	}
	return nil
}
