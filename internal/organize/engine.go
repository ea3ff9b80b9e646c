package organize

import (
	"context"
	"path"
	"sync"
	"time"

	"linksort/internal/config"
	"linksort/internal/errors"
	"linksort/internal/log"
	"linksort/internal/vault"
	"linksort/pkg/types"
)

// Reasons recorded on skipped outcomes.
const (
	ReasonNoRule      = "no matching rule"
	ReasonDestExists  = "destination exists"
	ReasonSamePath    = "already in place"
	ReasonTemplateErr = "template not applied"
)

// Engine moves routed files inside a vault and applies rule templates.
type Engine struct {
	fs         vault.FS
	dryRun     bool
	createDirs bool
	mu         sync.Mutex // Serialises check-then-move
	now        func() time.Time
}

// New creates an Engine over fs with default settings.
func New(fs vault.FS) *Engine {
	return &Engine{fs: fs, createDirs: true, now: time.Now}
}

// NewWithConfig creates an Engine honouring cfg.Settings.
func NewWithConfig(fs vault.FS, cfg *config.Config) *Engine {
	e := New(fs)
	e.SetConfig(cfg)
	return e
}

func (e *Engine) SetConfig(cfg *config.Config) {
	e.dryRun = cfg.Settings.DryRun
	e.createDirs = cfg.Settings.CreateDirs
}

// SetDryRun sets whether operations should be performed or just simulated
func (e *Engine) SetDryRun(dryRun bool) {
	e.dryRun = dryRun
}

// IsDryRun returns whether the engine is in dry run mode
func (e *Engine) IsDryRun() bool {
	return e.dryRun
}

// Destination returns the vault path a file lands at when filed under rule.
func Destination(ev types.FileEvent, rule types.Rule) (string, error) {
	return vault.Clean(path.Join(rule.Folder, ev.Name))
}

// Process routes ev with m and organizes it when a rule applies.
func (e *Engine) Process(ctx context.Context, m Matcher, ev types.FileEvent) types.OrganizeResult {
	rule, ok := m.Route(ev)
	if !ok {
		log.LogWithFields(log.F("path", ev.Path)).Debug("No rule applies")
		return types.OrganizeResult{
			SourcePath: ev.Path,
			Status:     types.StatusSkipped,
			Reason:     ReasonNoRule,
			Timestamp:  e.now(),
		}
	}
	return e.Organize(ctx, ev, rule)
}

// Organize moves ev into rule's folder and, once moved, appends the rule's
// template. Template failures are logged and recorded on the result but never
// undo the move.
func (e *Engine) Organize(ctx context.Context, ev types.FileEvent, rule types.Rule) types.OrganizeResult {
	result := e.Move(ctx, ev, rule)
	if !result.Moved() {
		return result
	}

	applied, err := e.ApplyTemplate(ctx, rule, result.DestinationPath)
	result.TemplateApplied = applied
	if err != nil {
		result.Error = err
		result.Reason = ReasonTemplateErr
		log.LogWithError(err).With(
			log.F("file", result.DestinationPath),
			log.F("template", rule.Template),
		).Warn("Template not applied")
	}
	return result
}

// Move files ev under rule.Folder. An occupied destination is never
// overwritten: the move is skipped and the result says why.
func (e *Engine) Move(ctx context.Context, ev types.FileEvent, rule types.Rule) types.OrganizeResult {
	result := types.OrganizeResult{
		SourcePath: ev.Path,
		Rule:       rule.Label(),
		Timestamp:  e.now(),
	}

	dest, err := Destination(ev, rule)
	if err != nil {
		return e.fail(result, err)
	}
	result.DestinationPath = dest

	if dest == ev.Path {
		log.Debugf("Source and destination are the same, skipping: %s", ev.Path)
		result.Status = types.StatusSkipped
		result.Reason = ReasonSamePath
		return result
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	exists, err := e.fs.Exists(ctx, dest)
	if err != nil {
		return e.fail(result, err)
	}
	if exists {
		log.LogWithFields(log.F("source", ev.Path), log.F("destination", dest)).Info("Destination exists, not moving")
		result.Status = types.StatusSkipped
		result.Reason = ReasonDestExists
		return result
	}

	if e.dryRun {
		log.Infof("Would move %s -> %s", ev.Path, dest)
		result.Status = types.StatusDryRun
		return result
	}

	if folder := path.Dir(dest); e.createDirs && folder != "." {
		if err := e.fs.MkdirAll(ctx, folder); err != nil {
			return e.fail(result, err)
		}
	}

	log.Debugf("Moving %s to %s", ev.Path, dest)
	if err := e.fs.Move(ctx, ev.Path, dest); err != nil {
		return e.fail(result, err)
	}

	log.LogWithFields(log.F("rule", result.Rule)).Infof("Moved %s -> %s", ev.Path, dest)
	result.Status = types.StatusMoved
	return result
}

// ApplyTemplate appends the rule's template to the file at dest. A rule
// without a template, or one whose template file is missing, is a no-op.
func (e *Engine) ApplyTemplate(ctx context.Context, rule types.Rule, dest string) (bool, error) {
	if rule.Template == "" {
		return false, nil
	}

	exists, err := e.fs.Exists(ctx, rule.Template)
	if err != nil {
		return false, errors.Wrapf(err, "checking template %s", rule.Template)
	}
	if !exists {
		log.LogWithFields(log.F("template", rule.Template)).Debug("Template not found, skipping")
		return false, nil
	}

	content, err := e.fs.Read(ctx, rule.Template)
	if err != nil {
		return false, errors.Wrapf(err, "reading template %s", rule.Template)
	}
	if e.dryRun {
		log.Infof("Would append %s to %s", rule.Template, dest)
		return false, nil
	}
	if err := e.fs.Append(ctx, dest, content); err != nil {
		return false, errors.Wrapf(err, "appending template to %s", dest)
	}

	log.Debugf("Applied template %s to %s", rule.Template, dest)
	return true, nil
}

// OrganizeEvents processes events in order and returns one result per event.
func (e *Engine) OrganizeEvents(ctx context.Context, m Matcher, events []types.FileEvent) []types.OrganizeResult {
	results := make([]types.OrganizeResult, 0, len(events))
	for _, ev := range events {
		if ctx.Err() != nil {
			break
		}
		results = append(results, e.Process(ctx, m, ev))
	}
	return results
}

func (e *Engine) fail(result types.OrganizeResult, err error) types.OrganizeResult {
	log.LogWithError(err).With(log.F("source", result.SourcePath)).Error("Failed to move file")
	result.Status = types.StatusFailed
	result.Reason = err.Error()
	result.Error = err
	return result
}
