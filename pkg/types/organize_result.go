package types

import "time"

// OrganizeStatus is the terminal state of handling one file event.
type OrganizeStatus string

const (
	StatusMoved   OrganizeStatus = "moved"
	StatusSkipped OrganizeStatus = "skipped"
	StatusDryRun  OrganizeStatus = "dry_run"
	StatusFailed  OrganizeStatus = "failed"
)

// OrganizeResult holds the outcome of an organization attempt for a single file
type OrganizeResult struct {
	SourcePath      string         `json:"source_path"`
	DestinationPath string         `json:"destination_path"`
	Rule            string         `json:"rule,omitempty"`
	Status          OrganizeStatus `json:"status"`
	Reason          string         `json:"reason,omitempty"`
	TemplateApplied bool           `json:"template_applied"`
	Timestamp       time.Time      `json:"timestamp"`
	Error           error          `json:"-"`
}

// Moved reports whether the file now lives at DestinationPath.
func (r OrganizeResult) Moved() bool {
	return r.Status == StatusMoved
}

// Event returns the FileEvent for where the file lives after this outcome.
func (r OrganizeResult) Event() FileEvent {
	if r.Moved() {
		return NewFileEvent(r.DestinationPath)
	}
	return NewFileEvent(r.SourcePath)
}
